package config

// Settings is the typed form of the six known keys as edited in the
// settings page.
type Settings struct {
	APIKey        string
	MicSource     string
	Language      string
	Notifications bool
	TrayIcon      bool
	SystemPrompt  string
}

// Settings returns the current values of the known keys.
func (c *Config) Settings() Settings {
	return Settings{
		APIKey:        c.values[KeyAPIKey],
		MicSource:     c.values[KeyMicSource],
		Language:      c.values[KeyLanguage],
		Notifications: c.Bool(KeyNotifications),
		TrayIcon:      c.Bool(KeyTrayIcon),
		SystemPrompt:  c.values[KeySystemPrompt],
	}
}

// Apply writes s into memory. Call Save to persist.
func (c *Config) Apply(s Settings) {
	c.Set(KeyAPIKey, s.APIKey)
	c.Set(KeyMicSource, s.MicSource)
	c.Set(KeyLanguage, s.Language)
	c.Set(KeyNotifications, formatBool(s.Notifications))
	c.Set(KeyTrayIcon, formatBool(s.TrayIcon))
	c.Set(KeySystemPrompt, s.SystemPrompt)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// SaveSettings applies s and saves. If the save fails the previous values
// are restored, so memory keeps matching the file.
func (c *Config) SaveSettings(s Settings) error {
	prev := make(map[string]string, len(known))
	for _, e := range known {
		prev[e.key] = c.values[e.key]
	}

	c.Apply(s)
	if err := c.Save(); err != nil {
		for k, v := range prev {
			c.values[k] = v
		}
		return err
	}
	return nil
}
