package constants

// Field Length Limits
const (
	MaxUsernameLength = 64
	MaxFullNameLength = 128
	MaxEmailLength    = 255
	MaxPasswordLength = 72 // bcrypt ignores bytes past 72
)

// Accepted image content types for avatar and cover uploads
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}
