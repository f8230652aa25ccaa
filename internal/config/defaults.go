package config

const (
	defaultDatasetDir       = "project_dataset"
	defaultOutputPath       = "extracted_dataset.db"
	defaultLogDir           = "~/.local/share/harvest/logs"
	defaultLogRetentionDays = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultReportFormat     = "text"
	defaultTDMSGroup        = "Log"
)

var defaultArchiveExtensions = []string{".zip", ".rar", ".7z", ".tar", ".gz", ".tgz", ".bz2", ".xz"}

var defaultMATContainerKeys = []string{"Signal", "signal"}

// Channels wired on the current/temperature rig: two thermocouples on Mod1 and
// three current clamps on Mod2.
var defaultTDMSChannels = []string{
	"cDAQ9185-1F486B5Mod1/ai0",
	"cDAQ9185-1F486B5Mod1/ai1",
	"cDAQ9185-1F486B5Mod2/ai0",
	"cDAQ9185-1F486B5Mod2/ai2",
	"cDAQ9185-1F486B5Mod2/ai3",
}

func defaultModalities() map[string]string {
	return map[string]string{
		"vibration":    "Vibration",
		"acoustic":     "Acoustic",
		"current,temp": "Temp_Current",
	}
}

// The source recordings spell some condition classes inconsistently across
// directories; each canonical class lists every spelling seen in filenames.
func defaultConditions() map[string][]string {
	return map[string][]string{
		"Normal":    {"normal"},
		"BPFI":      {"bpfi"},
		"BPFO":      {"bpfo"},
		"Misalign":  {"misalign", "misalignment", "misalignement"},
		"Unbalance": {"unbalance", "unbalalnce", "unbalnce", "unbalence"},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Discovery: Discovery{
			ArchiveExtensions: cloneStrings(defaultArchiveExtensions),
			Modalities:        defaultModalities(),
		},
		Conditions: defaultConditions(),
		MAT: MAT{
			ContainerKeys: cloneStrings(defaultMATContainerKeys),
		},
		TDMS: TDMS{
			Group:    defaultTDMSGroup,
			Channels: cloneStrings(defaultTDMSChannels),
		},
		Report: Report{
			Format: defaultReportFormat,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

func cloneStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	return out
}
