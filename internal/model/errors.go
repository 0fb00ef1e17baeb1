package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials はユーザー名またはパスワードが一致しない場合のエラー。
	ErrInvalidCredentials = errors.New("username/password is incorrect")
	// ErrSessionInvalid はセッショントークンが無効または期限切れの場合のエラー。
	ErrSessionInvalid = errors.New("session is invalid or expired")
	// ErrInvalidInput は入力値が数値として解釈できない、または範囲外の場合のエラー。
	ErrInvalidInput = errors.New("invalid input")
)

// InputError はフォーム項目ごとの入力エラーを表す。
type InputError struct {
	Field  string
	Reason string
}

// Error はerrorインターフェースを実装する。
func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap はerrors.IsでErrInvalidInputと比較できるようにする。
func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}
