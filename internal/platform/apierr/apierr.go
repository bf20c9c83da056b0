// Package apierr は各機能パッケージ共通のエラーモデル。
// ハンドラは ToHTTPStatus / FromErr でレスポンスに変換する。
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT" // already processed
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeTokenExpired      Code = "TOKEN_EXPIRED"
	CodeTokenInvalid      Code = "TOKEN_INVALID"
	CodeTokenUsed         Code = "TOKEN_USED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeUnauthenticated   Code = "UNAUTHENTICATED"
	CodeInternal          Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func ErrInvalid(msg string) *APIError   { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError  { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError  { return &APIError{Code: CodeConflict, Message: msg} }
func ErrStock(msg string) *APIError     { return &APIError{Code: CodeInsufficientStock, Message: msg} }
func ErrForbidden(msg string) *APIError { return &APIError{Code: CodeForbidden, Message: msg} }
func ErrInternal(msg string) *APIError  { return &APIError{Code: CodeInternal, Message: msg} }
func ErrUnauthenticated(msg string) *APIError {
	return &APIError{Code: CodeUnauthenticated, Message: msg}
}

func ErrInvalidf(format string, args ...any) *APIError {
	return ErrInvalid(fmt.Sprintf(format, args...))
}

func ErrStockf(format string, args ...any) *APIError {
	return ErrStock(fmt.Sprintf(format, args...))
}

// メンター承認リンク用（期限切れ／改ざん／使用済み）
func ErrTokenExpired() *APIError {
	return &APIError{Code: CodeTokenExpired, Message: "This approval link has expired (older than 72 hours). Please ask the student to resubmit their request."}
}

func ErrTokenInvalid() *APIError {
	return &APIError{Code: CodeTokenInvalid, Message: "This approval link is invalid."}
}

func ErrTokenUsed() *APIError {
	return &APIError{Code: CodeTokenUsed, Message: "This approval link has already been used."}
}

// Is は err が指定コードの APIError かどうか
func Is(err error, code Code) bool {
	var api *APIError
	return errors.As(err, &api) && api.Code == code
}

func ToHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument, CodeTokenExpired, CodeTokenInvalid:
			return http.StatusBadRequest
		case CodeUnauthenticated:
			return http.StatusUnauthorized
		case CodeForbidden:
			return http.StatusForbidden
		case CodeNotFound:
			return http.StatusNotFound
		case CodeConflict, CodeInsufficientStock, CodeTokenUsed:
			return http.StatusConflict
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// ---------- response envelope ----------

type ErrorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func Body(code Code, msg string) ErrorDTO {
	var e ErrorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

// FromErr: APIError 以外は内部エラー扱い（メッセージは外に出さない）
func FromErr(err error) ErrorDTO {
	var api *APIError
	if errors.As(err, &api) {
		return Body(api.Code, api.Message)
	}
	return Body(CodeInternal, "internal error")
}
