package config

const (
	defaultSceneFile    = "~/.local/share/armature/scene.db"
	defaultLogDir       = "~/.local/share/armature/logs"
	defaultTemplateDir  = "~/.local/share/armature/templates"
	defaultNamingPreset = "standard"
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SceneFile:    defaultSceneFile,
			LogDir:       defaultLogDir,
			TemplateDirs: []string{defaultTemplateDir},
		},
		Naming: Naming{
			Preset: defaultNamingPreset,
		},
		Build: Build{
			GuidePivotVisibility:   true,
			GuideControlVisibility: false,
			AutoAlignGuides:        true,
			UseProxyAttributes:     true,
			UseContainers:          false,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
