package logger

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Manager owns one logger per module.
type Manager struct {
	baseConfig ManagerConfig
	loggers    map[string]*CtxZapLogger
	zapLoggers map[string]*zap.Logger
	writers    map[string][]*lumberjack.Logger // kept for CloseAll
	mu         sync.RWMutex
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// NewManager creates a standalone manager. Zero-valued fields of cfg are defaulted.
func NewManager(cfg ManagerConfig) *Manager {
	cfg.ApplyDefaults()
	return &Manager{
		baseConfig: cfg,
		loggers:    make(map[string]*CtxZapLogger),
		zapLoggers: make(map[string]*zap.Logger),
		writers:    make(map[string][]*lumberjack.Logger),
	}
}

// InitManager initializes the global manager once.
func InitManager(cfg ManagerConfig) {
	managerOnce.Do(func() {
		globalManager = NewManager(cfg)
	})
}

// GetLogger returns the logger of a module, creating it on first use.
// Every entry carries a module field.
func (m *Manager) GetLogger(moduleName string) *CtxZapLogger {
	m.mu.RLock()
	if l, ok := m.loggers[moduleName]; ok {
		m.mu.RUnlock()
		return l
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.loggers[moduleName]; ok {
		return l
	}

	zl := m.createLogger(m.buildModuleConfig(moduleName)).With(zap.String("module", moduleName))
	l := &CtxZapLogger{
		base:   zl.WithOptions(zap.AddCallerSkip(1)),
		module: moduleName,
		config: &m.baseConfig,
	}
	m.loggers[moduleName] = l
	m.zapLoggers[moduleName] = zl
	return l
}

func (m *Manager) buildModuleConfig(moduleName string) Config {
	return Config{
		Level:                 m.baseConfig.Level,
		Encoding:              m.baseConfig.Encoding,
		ConsoleEncoding:       m.baseConfig.ConsoleEncoding,
		moduleName:            moduleName,
		logDir:                m.baseConfig.BaseLogDir,
		EnableFile:            m.baseConfig.EnableFile,
		EnableConsole:         m.baseConfig.EnableConsole,
		EnableLevelInFilename: m.baseConfig.EnableLevelInFilename,
		EnableDateInFilename:  m.baseConfig.EnableDateInFilename,
		DateFormat:            m.baseConfig.DateFormat,
		MaxSize:               m.baseConfig.MaxSize,
		MaxBackups:            m.baseConfig.MaxBackups,
		MaxAge:                m.baseConfig.MaxAge,
		Compress:              m.baseConfig.Compress,
		EnableCaller:          m.baseConfig.EnableCaller,
	}
}

func (m *Manager) createLogger(cfg Config) *zap.Logger {
	encoder := createEncoder(cfg.Encoding)
	level := ParseLevel(cfg.Level)
	var cores []zapcore.Core
	var writers []*lumberjack.Logger

	if cfg.EnableConsole {
		consoleEncoder := encoder
		if cfg.ConsoleEncoding != "" && cfg.ConsoleEncoding != cfg.Encoding {
			consoleEncoder = createEncoder(cfg.ConsoleEncoding)
		}
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stderr), level))
	}

	if cfg.EnableFile {
		infoWriter, infoLumber := createFileWriter(cfg.buildFilePath("info"), cfg)
		errorWriter, errorLumber := createFileWriter(cfg.buildFilePath("error"), cfg)
		writers = append(writers, infoLumber, errorLumber)

		// info file takes everything below error, error file the rest
		cores = append(cores,
			zapcore.NewCore(encoder, infoWriter, zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= level && lvl < zapcore.ErrorLevel
			})),
			zapcore.NewCore(encoder, errorWriter, zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= zapcore.ErrorLevel
			})),
		)
	}

	if len(writers) > 0 {
		m.writers[cfg.moduleName] = writers
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(zapcore.NewTee(cores...), opts...)
}

// CloseAll flushes every logger and closes the rotating files.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.zapLoggers {
		_ = l.Sync()
	}
	for _, ws := range m.writers {
		for _, w := range ws {
			_ = w.Close()
		}
	}

	m.loggers = make(map[string]*CtxZapLogger)
	m.zapLoggers = make(map[string]*zap.Logger)
	m.writers = make(map[string][]*lumberjack.Logger)
}

func createEncoder(encoding string) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		CallerKey:      "caller",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if encoding == "console" {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

func createFileWriter(filename string, cfg Config) (zapcore.WriteSyncer, *lumberjack.Logger) {
	_ = os.MkdirAll(filepath.Dir(filename), 0o755)

	lj := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
	return zapcore.AddSync(lj), lj
}

// GetLogger returns a module logger from the global manager,
// initializing it with DefaultManagerConfig when needed.
func GetLogger(moduleName string) *CtxZapLogger {
	InitManager(DefaultManagerConfig())
	return globalManager.GetLogger(moduleName)
}

// CloseAll closes the global manager's loggers.
func CloseAll() {
	if globalManager == nil {
		return
	}
	globalManager.CloseAll()
}
