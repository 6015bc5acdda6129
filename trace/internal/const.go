package internal

const (
	SdkLanguage = "sdk.language"
	Go          = "go"

	GoErrorType = "go.error_type"
)
