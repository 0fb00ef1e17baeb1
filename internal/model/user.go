// Package model はドメインモデルを定義する。
package model

import "time"

// User はログイン可能なユーザーを表す。
// 起動時に資格情報テーブルから読み込まれ、実行中に変更されることはない。
type User struct {
	Username string
	Name     string
	Password string
}

// AuthState はログイン試行の結果状態を表す。
type AuthState string

const (
	// AuthPending はまだ資格情報が送信されていない状態。
	AuthPending AuthState = "pending"
	// AuthRejected はユーザー名またはパスワードが一致しなかった状態。
	AuthRejected AuthState = "rejected"
	// AuthAuthenticated はログインに成功した状態。
	AuthAuthenticated AuthState = "authenticated"
)

// Session は署名付きCookieに紐づくログインセッションを表す。
type Session struct {
	ID        string
	Username  string
	Name      string
	ExpiresAt time.Time
}

// Expired はセッションが指定時刻の時点で期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
