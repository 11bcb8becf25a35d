package config

// LoggerConfig controls the zap logger built by package observability.
type LoggerConfig struct {
    Level       string // debug, info, warn, error
    Format      string // json or console
    ServiceName string
    AddSource   bool
    LogFile     string // optional rotating file sink, always JSON
    MaxSize     int    // megabytes before rotation
    MaxBackups  int
    MaxAge      int // days
    Compress    bool
}

// LoadLoggerConfig reads LOG_* variables.
func LoadLoggerConfig() LoggerConfig {
    return LoggerConfig{
        Level:       envStr("LOG_LEVEL", "info"),
        Format:      envStr("LOG_FORMAT", "json"),
        ServiceName: envStr("LOG_SERVICE_NAME", "regbridge"),
        AddSource:   envBool("LOG_ADD_SOURCE", false),
        LogFile:     envStr("LOG_FILE", ""),
        MaxSize:     envInt("LOG_MAX_SIZE_MB", 50),
        MaxBackups:  envInt("LOG_MAX_BACKUPS", 5),
        MaxAge:      envInt("LOG_MAX_AGE_DAYS", 14),
        Compress:    envBool("LOG_COMPRESS", true),
    }
}
