package validation

func CustomMessage(field string) map[string]string {
	var customValidationMessages = map[string]map[string]string{
		"email": {
			"required": "email is required",
			"contains": "email must contain @",
		},
		"username": {
			"required": "username is required",
		},
		"fullName": {
			"required": "full name is required",
		},
		"password": {
			"required": "password is required",
			"max":      "password must be at most 72 bytes",
		},
		"oldPassword": {
			"required": "old password is required",
		},
		"newPassword": {
			"required": "new password is required",
			"max":      "new password must be at most 72 bytes",
		},
	}
	return customValidationMessages[field]
}
