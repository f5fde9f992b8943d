package config

import "time"

// File is the structure of the .reportscan configuration file. Zero
// values leave the corresponding setting unchanged.
type File struct {
	Source       string        `yaml:"source,omitempty"`
	Brokerages   []string      `yaml:"brokerages,omitempty"`
	UserAgents   []string      `yaml:"userAgents,omitempty"`
	CategoryFile string        `yaml:"categoryFile,omitempty"`
	Retry        int           `yaml:"retry,omitempty"`
	RetryBackoff time.Duration `yaml:"retryBackoff,omitempty"`
	Workers      int           `yaml:"workers,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	Proxy        string        `yaml:"proxy,omitempty"`
	PageSize     int           `yaml:"pageSize,omitempty"`

	// Sources maps a source name to its settings.
	Sources map[string]SourceFile `yaml:"sources,omitempty"`

	Summarizer SummarizerFile `yaml:"summarizer,omitempty"`
	Output     OutputFile     `yaml:"output,omitempty"`
	Database   DatabaseFile   `yaml:"database,omitempty"`
	Watch      WatchFile      `yaml:"watch,omitempty"`
}

// SourceFile configures one portal.
type SourceFile struct {
	BaseURL string `yaml:"baseURL,omitempty"`
}

// SummarizerFile configures the summarizer. API keys are not read from
// the file; use GEMINI_API_KEY or ANTHROPIC_API_KEY.
type SummarizerFile struct {
	Name      string `yaml:"name,omitempty"`
	Model     string `yaml:"model,omitempty"`
	BaseURL   string `yaml:"baseURL,omitempty"`
	MaxTokens int    `yaml:"maxTokens,omitempty"`

	// Fallback is a pointer so that an explicit false is kept.
	Fallback *bool `yaml:"fallback,omitempty"`
}

// OutputFile configures the report output.
type OutputFile struct {
	Format string `yaml:"format,omitempty"`
	File   string `yaml:"file,omitempty"`
}

// DatabaseFile configures persistence.
type DatabaseFile struct {
	// Disabled turns off storing runs.
	Disabled bool   `yaml:"disabled,omitempty"`
	Dir      string `yaml:"dir,omitempty"`
}

// WatchFile configures recurring crawls.
type WatchFile struct {
	Schedule string `yaml:"schedule,omitempty"`
	Days     int    `yaml:"days,omitempty"`
}

// ApplyFile copies the settings present in f into c.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}

	setString(&c.Source, f.Source)
	setString(&c.CategoryFile, f.CategoryFile)
	setString(&c.ProxyAddress, f.Proxy)
	setInt(&c.RetryLimit, f.Retry)
	setInt(&c.Workers, f.Workers)
	setInt(&c.PageSize, f.PageSize)
	if f.RetryBackoff > 0 {
		c.RetryBackoff = f.RetryBackoff
	}
	if f.Timeout > 0 {
		c.Timeout = f.Timeout
	}
	if len(f.Brokerages) > 0 {
		c.Brokerages = f.Brokerages
	}
	if len(f.UserAgents) > 0 {
		c.UserAgents = f.UserAgents
	}

	for name, s := range f.Sources {
		if s.BaseURL == "" {
			continue
		}
		if c.BaseURLs == nil {
			c.BaseURLs = make(map[string]string)
		}
		c.BaseURLs[name] = s.BaseURL
	}

	setString(&c.Summarizer, f.Summarizer.Name)
	setString(&c.SummarizerModel, f.Summarizer.Model)
	setString(&c.SummarizerBaseURL, f.Summarizer.BaseURL)
	setInt(&c.SummarizerMaxTokens, f.Summarizer.MaxTokens)
	if f.Summarizer.Fallback != nil {
		c.SummarizerFallback = *f.Summarizer.Fallback
	}

	setString(&c.Format, f.Output.Format)
	setString(&c.ReportFile, f.Output.File)

	if f.Database.Disabled {
		c.SaveToDB = false
	}
	setString(&c.DBDir, f.Database.Dir)

	setString(&c.WatchSchedule, f.Watch.Schedule)
	setInt(&c.WatchDays, f.Watch.Days)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
