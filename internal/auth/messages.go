package auth

import (
	"errors"

	"github.com/medtrack/clinic-service/internal/users"
)

// Localized user-facing messages for sign-in and registration failures.
// The API serves a Turkish-speaking clinic, so these stay in Turkish.
const (
	MsgWrongCredentials = "E-posta veya şifre hatalı"
	MsgUserNotFound     = "Kullanıcı bulunamadı"
	MsgEmailInUse       = "Bu e-posta adresi zaten kullanımda"
	MsgWeakPassword     = "Şifre en az 6 karakter olmalıdır"
	MsgInvalidEmail     = "Geçerli bir e-posta adresi giriniz"
	MsgTooManyRequests  = "Çok fazla deneme yapıldı. Lütfen daha sonra tekrar deneyin"
	MsgNetworkFailure   = "Bağlantı hatası. İnternet bağlantınızı kontrol edin"
	MsgUserDataMissing  = "Kullanıcı bilgileri alınamadı"
	MsgDefault          = "Bir hata oluştu. Lütfen tekrar deneyin"
)

// LocalizedMessage translates an auth error into the message shown to
// the end user. Unrecognized errors fall back to a generic message so
// provider internals never leak to the client.
func LocalizedMessage(err error) string {
	switch {
	case errors.Is(err, ErrWrongCredentials):
		return MsgWrongCredentials
	case errors.Is(err, users.ErrUserNotFound):
		return MsgUserNotFound
	case errors.Is(err, ErrEmailInUse):
		return MsgEmailInUse
	case errors.Is(err, ErrWeakPassword):
		return MsgWeakPassword
	case errors.Is(err, ErrInvalidEmail):
		return MsgInvalidEmail
	case errors.Is(err, ErrTooManyRequests):
		return MsgTooManyRequests
	case errors.Is(err, ErrIdentityUnreached):
		return MsgNetworkFailure
	case errors.Is(err, ErrUserDataMissing):
		return MsgUserDataMissing
	default:
		return MsgDefault
	}
}
