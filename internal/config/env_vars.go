package config

import "time"

const (
	appNameVar        = "APP_NAME"
	apiBaseURLVar     = "API_BASE_URL"
	cmsTokenVar       = "CMS_TOKEN"
	requestTimeoutVar = "REQUEST_TIMEOUT"
	logLevelVar       = "LOG_LEVEL"
	logJSONVar        = "LOG_JSON"
)

type EnvVars struct {
	source
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.getString(appNameVar, "igauth")
}

// GetAPIBaseURL returns the CMS backend base URL, e.g. "https://cms.example.com/api".
// The /instagram/... endpoints are resolved relative to it.
func (e EnvVars) GetAPIBaseURL() string {
	return e.getString(apiBaseURLVar, "http://localhost:8000/api")
}

// GetCMSToken returns a CMS token supplied through the environment, if any.
func (e EnvVars) GetCMSToken() string {
	return e.getString(cmsTokenVar, "")
}

func (e EnvVars) GetRequestTimeout() time.Duration {
	return e.getDuration(requestTimeoutVar, 30*time.Second)
}

func (e EnvVars) GetLogLevel() string {
	return e.getString(logLevelVar, "info")
}

func (e EnvVars) GetLogJSON() bool {
	return e.getBool(logJSONVar, false)
}

func (e EnvVars) GetEnv() string {
	return e.getString("ENV", "DEV")
}
