package configuration

import (
	"fmt"
	"os"
	"os/user"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

const (
	// EnvPrefix prefixes every setting read from the environment.
	EnvPrefix = "HDFSCM_"

	EnvJupyter    = "JUPYTER_ENV"
	EnvHadoopHome = "HADOOP_HOME"

	JupyterEnvDev  = "dev"
	JupyterEnvTest = "test"

	BackendHDFS  = "hdfs"
	BackendLocal = "local"

	CheckpointsHDFS = "hdfs"
	CheckpointsNoOp = "noop"
)

const (
	SettingRootDir                = "ROOT_DIR"
	SettingRootDirTemplate        = "ROOT_DIR_TEMPLATE"
	SettingCreateRootDirOnStartup = "CREATE_ROOT_DIR_ON_STARTUP"
	SettingSharedDir              = "SHARED_DIR"
	SettingHDFSHost               = "HDFS_HOST"
	SettingHDFSPort               = "HDFS_PORT"
	SettingHDFSUser               = "HDFS_USER"
	SettingCheckpoints            = "CHECKPOINTS"
	SettingCheckpointDir          = "CHECKPOINT_DIR"
	SettingAllowHidden            = "ALLOW_HIDDEN"
	SettingHideGlobs              = "HIDE_GLOBS"
	SettingBackend                = "BACKEND"
	SettingLocalBaseDir           = "LOCAL_BASE_DIR"
	SettingListen                 = "LISTEN"
	SettingLogLevel               = "LOG_LEVEL"
	SettingMinFreeBytes           = "MIN_FREE_BYTES"
	SettingVerifyCopies           = "VERIFY_COPIES"
)

const (
	DefaultRootDirTemplate = "/user/{username}/notebooks"
	DefaultSharedDir       = "/user/jupyter/notebooks"
	DefaultHDFSHost        = "default"
	DefaultCheckpointDir   = ".ipynb_checkpoints"
	DefaultListen          = "127.0.0.1:8888"
	DefaultLocalBaseDir    = "hdfscm-data"

	usernamePlaceholder = "{username}"
)

//nolint:gochecknoglobals
var logLevels = []string{"debug", "info", "warn", "error"}

// Config is the application configuration.
type Config struct {
	RootDir                string
	CreateRootDirOnStartup bool
	SharedDir              string

	HDFSHost string
	HDFSPort int
	HDFSUser string

	Checkpoints   string
	CheckpointDir string

	AllowHidden bool
	HideGlobs   []string // nil means the built-in defaults

	Backend      string
	LocalBaseDir string

	Listen       string
	LogLevel     string
	MinFreeBytes uint64
	VerifyCopies bool

	JupyterEnv string
	HadoopHome string
}

type configProvider interface {
	ReadGeneric(filenames ...string) (envMap map[string]string, err error)
	MapKeyToString(envMap map[string]string, key string) string
	MapKeyToInt(envMap map[string]string, key string) int
	MapKeyToBool(envMap map[string]string, key string, def bool) (bool, bool)
	MapKeyToBytes(envMap map[string]string, key string) (uint64, error)
	MapKeyToList(envMap map[string]string, key string) []string
}

// Loader assembles a [Config] from an optional dotenv file and the
// environment, the environment taking precedence.
type Loader struct {
	configHandler configProvider
	environ       func() []string
	username      func() (string, error)
}

func NewLoader(configHandler configProvider) *Loader {
	return &Loader{
		configHandler: configHandler,
		environ:       os.Environ,
		username:      currentUsername,
	}
}

func currentUsername() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("(config-user) %w", err)
	}

	return u.Username, nil
}

// Load reads the configuration. Keys are looked up without [EnvPrefix],
// which is stripped from both the file and the environment.
func (l *Loader) Load(filenames ...string) (*Config, error) {
	envMap := make(map[string]string)

	if len(filenames) > 0 {
		fileMap, err := l.configHandler.ReadGeneric(filenames...)
		if err != nil {
			return nil, fmt.Errorf("(config-load) failed to read config file: %w", err)
		}
		mergePrefixed(envMap, fileMap)
	}

	osMap := make(map[string]string)
	for _, kv := range l.environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			osMap[k] = v
		}
	}
	mergePrefixed(envMap, osMap)

	c := l.configHandler
	cfg := &Config{
		JupyterEnv: envMap[EnvJupyter],
		HadoopHome: osMap[EnvHadoopHome],
	}

	var badBools []string
	boolSetting := func(key string, def bool) bool {
		v, ok := c.MapKeyToBool(envMap, key, def)
		if !ok {
			badBools = append(badBools, key)
		}

		return v
	}

	cfg.RootDir = c.MapKeyToString(envMap, SettingRootDir)
	if cfg.RootDir == "" {
		template := c.MapKeyToString(envMap, SettingRootDirTemplate)
		if template == "" {
			template = DefaultRootDirTemplate
		}

		rootDir, err := l.rootDirFromTemplate(template)
		if err != nil {
			return nil, fmt.Errorf("(config-load) %w", err)
		}
		cfg.RootDir = rootDir
	}

	cfg.CreateRootDirOnStartup = boolSetting(SettingCreateRootDirOnStartup, true)
	cfg.SharedDir = withDefault(c.MapKeyToString(envMap, SettingSharedDir), DefaultSharedDir)

	cfg.HDFSHost = withDefault(c.MapKeyToString(envMap, SettingHDFSHost), DefaultHDFSHost)
	if _, ok := envMap[SettingHDFSPort]; ok {
		cfg.HDFSPort = c.MapKeyToInt(envMap, SettingHDFSPort)
	}
	cfg.HDFSUser = c.MapKeyToString(envMap, SettingHDFSUser)

	cfg.Checkpoints = withDefault(strings.ToLower(c.MapKeyToString(envMap, SettingCheckpoints)), CheckpointsHDFS)
	cfg.CheckpointDir = withDefault(c.MapKeyToString(envMap, SettingCheckpointDir), DefaultCheckpointDir)

	cfg.AllowHidden = boolSetting(SettingAllowHidden, false)
	cfg.HideGlobs = c.MapKeyToList(envMap, SettingHideGlobs)

	defaultBackend, defaultLevel := BackendHDFS, "info"
	if cfg.JupyterEnv == JupyterEnvDev {
		defaultBackend, defaultLevel = BackendLocal, "debug"
	}
	cfg.Backend = withDefault(strings.ToLower(c.MapKeyToString(envMap, SettingBackend)), defaultBackend)
	cfg.LocalBaseDir = withDefault(c.MapKeyToString(envMap, SettingLocalBaseDir), filepath.Join(os.TempDir(), DefaultLocalBaseDir))

	cfg.Listen = withDefault(c.MapKeyToString(envMap, SettingListen), DefaultListen)
	cfg.LogLevel = withDefault(strings.ToLower(c.MapKeyToString(envMap, SettingLogLevel)), defaultLevel)

	minFree, err := c.MapKeyToBytes(envMap, SettingMinFreeBytes)
	if err != nil {
		return nil, fmt.Errorf("(config-load) %w: %s: %w", ErrInvalidConfig, SettingMinFreeBytes, err)
	}
	cfg.MinFreeBytes = minFree
	cfg.VerifyCopies = boolSetting(SettingVerifyCopies, true)

	if len(badBools) > 0 {
		return nil, fmt.Errorf("(config-load) %w: not a boolean: %s", ErrInvalidConfig, strings.Join(badBools, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (l *Loader) rootDirFromTemplate(template string) (string, error) {
	if !strings.Contains(template, usernamePlaceholder) {
		return template, nil
	}

	username, err := l.username()
	if err != nil {
		return "", err
	}

	return strings.ReplaceAll(template, usernamePlaceholder, username), nil
}

// Validate rejects settings the application cannot run with.
func (cfg *Config) Validate() error {
	var problems []string

	if !path.IsAbs(cfg.RootDir) {
		problems = append(problems, fmt.Sprintf("%s must be absolute: %q", SettingRootDir, cfg.RootDir))
	}
	if !path.IsAbs(cfg.SharedDir) {
		problems = append(problems, fmt.Sprintf("%s must be absolute: %q", SettingSharedDir, cfg.SharedDir))
	}
	if cfg.HDFSPort < 0 || cfg.HDFSPort > 65535 {
		problems = append(problems, fmt.Sprintf("%s out of range: %d", SettingHDFSPort, cfg.HDFSPort))
	}
	if cfg.Backend != BackendHDFS && cfg.Backend != BackendLocal {
		problems = append(problems, fmt.Sprintf("unknown %s: %q", SettingBackend, cfg.Backend))
	}
	if cfg.Checkpoints != CheckpointsHDFS && cfg.Checkpoints != CheckpointsNoOp {
		problems = append(problems, fmt.Sprintf("unknown %s: %q", SettingCheckpoints, cfg.Checkpoints))
	}
	if strings.Contains(cfg.CheckpointDir, "/") {
		problems = append(problems, fmt.Sprintf("%s must be a plain name: %q", SettingCheckpointDir, cfg.CheckpointDir))
	}
	if !slices.Contains(logLevels, cfg.LogLevel) {
		problems = append(problems, fmt.Sprintf("unknown %s: %q", SettingLogLevel, cfg.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("(config-validate) %w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}

	return nil
}

func mergePrefixed(dst, src map[string]string) {
	for k, v := range src {
		if name, ok := strings.CutPrefix(k, EnvPrefix); ok {
			dst[name] = v
		} else if k == EnvJupyter {
			dst[k] = v
		}
	}
}

func withDefault(value, def string) string {
	if value == "" {
		return def
	}

	return value
}
