package handlers

const (
	ErrInvalidFormData     = "Geçersiz form verisi"
	ErrInvalidSetID        = "Geçersiz set numarası"
	ErrUnauthorized        = "Oturum açmanız gerekiyor"
	ErrForbiddenCSRF       = "Geçersiz güvenlik anahtarı"
	ErrTooManyRequests     = "Çok fazla deneme. Lütfen biraz sonra tekrar deneyin."
	ErrInternalServerError = "Sunucu hatası"
	ErrInvalidCredentials  = "E-posta veya şifre hatalı"
	ErrEmailTaken          = "Bu e-posta adresi zaten kayıtlı"
	ErrOAuthFailed         = "Google ile giriş yapılamadı"

	appTitle = "StudyCards"
)
