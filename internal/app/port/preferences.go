package port

// Persisted preference keys. The names are kept as the original product
// shipped them; changing them would orphan existing stored values.
const (
	PrefPrimaryWallet = "satotrack_carteira_principal"
	PrefViewMode      = "satotrack_view_mode"
	PrefLanguage      = "satotrack_language"
)

// PreferenceStore is a synchronous key-value store for user preferences.
// Values are read at startup and written on every set; there is no schema
// versioning.
type PreferenceStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}
