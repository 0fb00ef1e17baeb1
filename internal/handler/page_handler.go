// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/energylog/internal/auth"
	"github.com/hitoshi/energylog/internal/metrics"
	"github.com/hitoshi/energylog/internal/middleware"
	"github.com/hitoshi/energylog/internal/model"
	"github.com/hitoshi/energylog/internal/sheet"
	"github.com/hitoshi/energylog/internal/submission"
)

// 画面に表示するメッセージ
const (
	msgPendingCredentials = "Please enter your username and password"
	msgRejected           = "Username/password is incorrect"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(
	template.New("page.html").
		Funcs(template.FuncMap{"amount": formatAmount}).
		ParseFS(templateFS, "templates/page.html"),
)

// AuthServiceInterface はページハンドラーが必要とする認証サービスのインターフェース。
type AuthServiceInterface interface {
	Login(username, password string) (*auth.LoginResult, error)
}

// SubmissionServiceInterface はページハンドラーが必要とする送信サービスのインターフェース。
type SubmissionServiceInterface interface {
	Submit(ctx context.Context, session *model.Session, electricityKWh, dieselLitre float64) submission.Outcome
}

// PageHandlerConfig はページハンドラーの設定。
type PageHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// PageHandler はログインフォームと入力フォームを提供する単一ページのHTTPハンドラー。
type PageHandler struct {
	auth      AuthServiceInterface
	submitter SubmissionServiceInterface
	metrics   metrics.MetricsCollector
	config    PageHandlerConfig
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(authService AuthServiceInterface, submitter SubmissionServiceInterface, mc metrics.MetricsCollector, config PageHandlerConfig) *PageHandler {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &PageHandler{
		auth:      authService,
		submitter: submitter,
		metrics:   mc,
		config:    config,
	}
}

// pageData はテンプレートに渡す表示データ。
type pageData struct {
	CSRFField string
	CSRFToken string
	Header    []string

	Session *model.Session

	// ログインフォーム
	Username string
	Notice   string

	// 入力フォーム
	Electricity string
	Diesel      string
	Outcome     *submission.Outcome

	Error string
}

func (h *PageHandler) newPageData(r *http.Request) *pageData {
	session, _ := middleware.SessionFromContext(r.Context())
	return &pageData{
		CSRFField:   middleware.CSRFFieldName,
		CSRFToken:   middleware.CSRFTokenFromContext(r.Context()),
		Header:      sheet.Header,
		Session:     session,
		Electricity: "0.0",
		Diesel:      "0.0",
	}
}

// Index はセッションの有無に応じてログインフォームまたは入力フォームを表示する。
// GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	data := h.newPageData(r)
	if data.Session == nil {
		data.Notice = msgPendingCredentials
	}
	h.render(w, http.StatusOK, data)
}

// Login はユーザー名とパスワードを照合し、成功時はセッションCookieを設定する。
// POST /login
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	result, err := h.auth.Login(username, password)
	if err != nil {
		slog.Error("failed to login", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.metrics.RecordLogin(result.State)

	data := h.newPageData(r)
	data.Session = nil
	data.Username = username

	switch result.State {
	case model.AuthAuthenticated:
		h.setSessionCookie(w, result.Token, h.config.SessionMaxAge)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case model.AuthRejected:
		data.Error = msgRejected
		h.render(w, http.StatusUnauthorized, data)
	default:
		data.Notice = msgPendingCredentials
		h.render(w, http.StatusOK, data)
	}
}

// Logout はセッションCookieをクリアしてトップページへ戻す。
// セッションはサーバー側に保持しないため、Cookieの削除のみで無効化される。
// POST /logout
func (h *PageHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session, ok := middleware.SessionFromContext(r.Context()); ok {
		slog.Info("logout", slog.String("username", session.Username))
	}
	h.setSessionCookie(w, "", -1)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Submit は入力値を検証し、スプレッドシートとしてアップロードした結果を表示する。
// アップロードに失敗した場合もエラーメッセージと送信内容を表示する。
// POST /submit
func (h *PageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	data := h.newPageData(r)
	if data.Session == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data.Electricity = r.PostFormValue("electricity")
	data.Diesel = r.PostFormValue("diesel")

	electricity, err := submission.ParseAmount("electricity", data.Electricity)
	if err != nil {
		h.renderInputError(w, data, err)
		return
	}
	diesel, err := submission.ParseAmount("diesel", data.Diesel)
	if err != nil {
		h.renderInputError(w, data, err)
		return
	}

	outcome := h.submitter.Submit(r.Context(), data.Session, electricity, diesel)
	data.Outcome = &outcome
	h.render(w, http.StatusOK, data)
}

func (h *PageHandler) renderInputError(w http.ResponseWriter, data *pageData, err error) {
	data.Error = err.Error()
	h.render(w, http.StatusBadRequest, data)
}

// render はテンプレートをバッファに描画してからレスポンスに書き込む。
// 描画途中で失敗した場合に不完全なHTMLを返さないようにする。
func (h *PageHandler) render(w http.ResponseWriter, status int, data *pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		slog.Error("failed to render page", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (h *PageHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// formatAmount は数値を丸めずに最短表記で表示する。
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
