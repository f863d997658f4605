// Package config loads the pipeline configuration from a YAML file, with
// credentials and connection strings layered on from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pears-cleaning/internal/datastore"
)

// Config is the complete pipeline configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Reference ReferenceConfig `yaml:"reference"`
	Exports   ExportsConfig   `yaml:"exports"`
	Report    ReportConfig    `yaml:"report"`
	Mail      MailConfig      `yaml:"mail"`
	S3        S3Config        `yaml:"s3"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ReferenceConfig locates the lookup workbooks.
type ReferenceConfig struct {
	StaffList           string `yaml:"staff_list"`
	UnitCounties        string `yaml:"unit_counties"`
	UpdateNotifications string `yaml:"update_notifications"`
	NamesList           string `yaml:"names_list"`
	// FormerStaffDomain completes the NETIDs on the former staff sheet.
	FormerStaffDomain string `yaml:"former_staff_domain" validate:"required,startswith=@"`
}

// ExportsConfig locates the module exports.
type ExportsConfig struct {
	Dir          string `yaml:"dir" validate:"required"`
	SurveyExport string `yaml:"survey_export"`
}

// ReportConfig controls what a run writes and who it mails.
type ReportConfig struct {
	OutputDir    string `yaml:"output_dir" validate:"required"`
	AllowPartial bool   `yaml:"allow_partial"`
	SendEmails   bool   `yaml:"send_emails"`

	Recipients            []string `yaml:"recipients" validate:"dive,email"`
	AdminRecipients       []string `yaml:"admin_recipients" validate:"dive,email"`
	FormerStaffRecipients []string `yaml:"former_staff_recipients" validate:"dive,email"`
	BaseCC                string   `yaml:"base_cc"`

	CentralSheets []string `yaml:"central_sheets"`
	CentralDomain string   `yaml:"central_domain" validate:"required"`

	MonthlyDeadlineDay   int `yaml:"monthly_deadline_day" validate:"min=1,max=31"`
	QuarterlyDeadlineDay int `yaml:"quarterly_deadline_day" validate:"min=1,max=31"`

	TeamName    string `yaml:"team_name" validate:"required"`
	TeamEmail   string `yaml:"team_email" validate:"required,email"`
	CheatSheets string `yaml:"cheat_sheets" validate:"omitempty,url"`
	SurveyForm  string `yaml:"survey_form" validate:"omitempty,url"`
}

// MailConfig is the SMTP relay. Username and password come from the
// environment only.
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
	From     string `yaml:"from" validate:"omitempty,email"`
	Username string `yaml:"-"`
	Password string `yaml:"-"`
}

// S3Config locates the bucket the Platform delivers exports to.
type S3Config struct {
	Bucket       string `yaml:"bucket" validate:"required"`
	Organization string `yaml:"organization" validate:"required"`
	Profile      string `yaml:"profile"`
	Region       string `yaml:"region"`
}

// ScheduleConfig is the run calendar.
type ScheduleConfig struct {
	MonthlyDay      int    `yaml:"monthly_day" validate:"min=1,max=28"`
	QuarterlyDays   []int  `yaml:"quarterly_days" validate:"dive,min=1,max=28"`
	QuarterlyMonths []int  `yaml:"quarterly_months" validate:"dive,min=1,max=12"`
	Cron            string `yaml:"cron" validate:"required"`
}

// MetricsConfig configures the Pushgateway a run reports to. An empty URL
// disables pushing.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" validate:"omitempty,url"`
	Job            string `yaml:"job" validate:"required"`
}

// DefaultConfig returns a Config with the production defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Reference: ReferenceConfig{
			StaffList:           "reference/FCS Staff List.xlsx",
			UnitCounties:        "reference/Illinois Extension Unit Counties.xlsx",
			UpdateNotifications: "reference/Update Notifications.xlsx",
			NamesList:           "reference/IL.TXT",
			FormerStaffDomain:   "@illinois.edu",
		},
		Exports: ExportsConfig{Dir: "pears"},
		Report: ReportConfig{
			OutputDir:            "output",
			CentralSheets:        []string{"FCS State Office"},
			CentralDomain:        "@uic.edu",
			MonthlyDeadlineDay:   19,
			QuarterlyDeadlineDay: 30,
			TeamName:             "FCS Evaluation Team",
			TeamEmail:            "pears@illinois.edu",
		},
		Mail: MailConfig{Port: 587},
		S3: S3Config{
			Bucket:       "exports.pears.oeie.org",
			Organization: "uie",
			Region:       "us-east-1",
		},
		Schedule: ScheduleConfig{
			MonthlyDay:      12,
			QuarterlyDays:   []int{12, 23},
			QuarterlyMonths: []int{1, 4, 7, 10},
			Cron:            "0 6 * * *",
		},
		Metrics: MetricsConfig{Job: "pears_cleaning"},
	}
}

// Validate checks the struct tags and the settings they cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Report.SendEmails && c.Mail.Host == "" {
		return fmt.Errorf("mail.host is required when emails are sent")
	}
	if c.Report.SendEmails && c.Mail.From == "" {
		return fmt.Errorf("mail.from is required when emails are sent")
	}
	return nil
}

// LoadFromFile reads a YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// Load builds the configuration for a command: defaults, then the YAML
// file when path is set, then the environment. A .env file in the working
// directory is read first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	config := DefaultConfig()
	if path != "" {
		var err error
		if config, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overlays the settings that are only ever taken from the
// environment, and any file settings the environment overrides.
func (c *Config) ApplyEnv() error {
	c.Mail.Username = os.Getenv("PEARS_SMTP_USERNAME")
	c.Mail.Password = os.Getenv("PEARS_SMTP_PASSWORD")
	if v := os.Getenv("PEARS_SMTP_HOST"); v != "" {
		c.Mail.Host = v
	}
	if v := os.Getenv("PEARS_SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PEARS_SMTP_PORT %q: %w", v, err)
		}
		c.Mail.Port = port
	}
	if v := os.Getenv("PEARS_SMTP_FROM"); v != "" {
		c.Mail.From = v
	}
	if v := os.Getenv("PEARS_S3_PROFILE"); v != "" {
		c.S3.Profile = v
	}
	if v := os.Getenv("PEARS_PUSHGATEWAY_URL"); v != "" {
		c.Metrics.PushgatewayURL = v
	}
	if v := os.Getenv("PEARS_ADMIN_EMAILS"); v != "" {
		c.Report.AdminRecipients = splitList(v)
	}
	if v := os.Getenv("PEARS_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// GetDataStoreConfig returns the run ledger configuration from the
// environment. Without PEARS_STORE_TYPE the ledger is PostgreSQL when
// DB_CONN_STRING is set and in-memory otherwise.
func GetDataStoreConfig() datastore.Config {
	storeType := os.Getenv("PEARS_STORE_TYPE")
	connStr := os.Getenv("DB_CONN_STRING")
	if storeType == "" {
		if connStr != "" {
			storeType = string(datastore.PostgreSQLStore)
		} else {
			storeType = string(datastore.MemoryStore)
		}
	}

	switch strings.ToLower(storeType) {
	case "memory", "mem":
		return datastore.Config{Type: datastore.MemoryStore}
	case "postgresql", "postgres", "db":
		return datastore.Config{Type: datastore.PostgreSQLStore, ConnectionString: getConnectionString(connStr)}
	default:
		return datastore.Config{Type: datastore.Type(storeType)}
	}
}

// getConnectionString falls back to the local development database.
func getConnectionString(connStr string) string {
	if connStr == "" {
		return "postgres://localhost:5432/postgres?sslmode=disable"
	}
	return connStr
}
