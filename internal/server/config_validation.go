// config_validation.go - Startup validation of environment configuration.
//
// Validates environment variables at startup to fail fast with clear error
// messages rather than runtime failures.
package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ConfigValidationError represents a configuration validation error.
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// ConfigValidator collects configuration errors.
type ConfigValidator struct {
	errors []ConfigValidationError
}

// NewConfigValidator creates a new configuration validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{errors: make([]ConfigValidationError, 0)}
}

// AddError adds a validation error.
func (v *ConfigValidator) AddError(field, message string) {
	v.errors = append(v.errors, ConfigValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors.
func (v *ConfigValidator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *ConfigValidator) Errors() []ConfigValidationError {
	return v.errors
}

// ErrorString returns a formatted string of all errors.
func (v *ConfigValidator) ErrorString() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n", len(v.errors)))
	for i, err := range v.errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidateRequired validates that a required environment variable is set.
func (v *ConfigValidator) ValidateRequired(key string) string {
	value := os.Getenv(key)
	if value == "" {
		v.AddError(key, "required environment variable not set")
	}
	return value
}

// ValidatePort validates that a value is a valid ":port" or port number.
func (v *ConfigValidator) ValidatePort(key, value string) {
	if value == "" {
		return
	}

	portStr := strings.TrimPrefix(value, ":")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		v.AddError(key, "port must be a number")
		return
	}
	if port < 1 || port > 65535 {
		v.AddError(key, "port must be between 1 and 65535")
	}
}

// ValidateMinLength validates minimum string length.
func (v *ConfigValidator) ValidateMinLength(key, value string, minLen int) {
	if value == "" {
		return
	}
	if len(value) < minLen {
		v.AddError(key, fmt.Sprintf("must be at least %d characters long (got %d)", minLen, len(value)))
	}
}

// ValidateEnum validates that a value is one of allowed options.
func (v *ConfigValidator) ValidateEnum(key, value string, allowed []string) {
	for _, opt := range allowed {
		if value == opt {
			return
		}
	}
	v.AddError(key, fmt.Sprintf("must be one of: %s (got: %s)", strings.Join(allowed, ", "), value))
}

// ValidatePositiveInt validates that a value is a positive integer.
func (v *ConfigValidator) ValidatePositiveInt(key, value string) {
	if value == "" {
		return
	}
	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		v.AddError(key, "must be a valid integer")
		return
	}
	if num <= 0 {
		v.AddError(key, "must be a positive integer")
	}
}

// ValidateAllConfiguration performs validation of the full environment.
func ValidateAllConfiguration() error {
	v := NewConfigValidator()

	v.ValidateRequired("DATABASE_URL")
	v.ValidateRequired("UPL_SESSION_SECRET")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL != "" {
		if !strings.HasPrefix(dbURL, "postgres://") && !strings.HasPrefix(dbURL, "postgresql://") {
			v.AddError("DATABASE_URL", "must be a valid PostgreSQL connection string")
		}
	}

	v.ValidateMinLength("UPL_SESSION_SECRET", os.Getenv("UPL_SESSION_SECRET"), 32)

	if addr := os.Getenv("UPL_ADDR"); addr != "" {
		v.ValidatePort("UPL_ADDR", addr)
	}

	v.ValidatePositiveInt("UPL_MAX_UPLOAD_BYTES", os.Getenv("UPL_MAX_UPLOAD_BYTES"))
	v.ValidatePositiveInt("UPL_SESSION_TTL_HOURS", os.Getenv("UPL_SESSION_TTL_HOURS"))

	// The archive group must be all-or-nothing.
	s3Vars := []string{"UPL_S3_ENDPOINT", "UPL_S3_ACCESS_KEY", "UPL_S3_SECRET_KEY", "UPL_S3_BUCKET"}
	set := 0
	for _, key := range s3Vars {
		if os.Getenv(key) != "" {
			set++
		}
	}
	if set > 0 && set < len(s3Vars) {
		for _, key := range s3Vars {
			if os.Getenv(key) == "" {
				v.AddError(key, "must be set when any UPL_S3_* variable is set")
			}
		}
	}

	v.ValidateEnum("UPL_LOG_FORMAT", os.Getenv("UPL_LOG_FORMAT"), []string{"", "json", "text"})
	v.ValidateEnum("UPL_LOG_LEVEL", os.Getenv("UPL_LOG_LEVEL"), []string{"", "debug", "info", "warn", "error"})

	if v.HasErrors() {
		return fmt.Errorf("%s", v.ErrorString())
	}
	return nil
}
