package cfg

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	SourcesFile     string
	Port            string
	RefreshInterval int // minutes

	// Authentication
	AuthPassword     string
	AuthPasswordHash string
	SessionSecret    string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
