// Package credential はログイン可能なユーザーの資格情報テーブルを提供する。
package credential

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/hitoshi/energylog/internal/model"
)

// bcryptPrefixes はbcryptハッシュとして扱うパスワード値の接頭辞。
var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// Store はユーザー名をキーとする資格情報テーブル。
// 生成後は変更されないため、複数のgoroutineから安全に参照できる。
type Store struct {
	users map[string]model.User
}

// DefaultUsers は資格情報ファイルが指定されない場合の初期ユーザー。
func DefaultUsers() []model.User {
	return []model.User{
		{Username: "client1", Name: "Client One", Password: "password1"},
	}
}

// NewStore はユーザー一覧からStoreを生成する。
// ユーザー名が空、または重複している場合はエラーを返す。
func NewStore(users []model.User) (*Store, error) {
	m := make(map[string]model.User, len(users))
	for _, u := range users {
		if u.Username == "" {
			return nil, errors.New("username must not be empty")
		}
		if _, dup := m[u.Username]; dup {
			return nil, fmt.Errorf("duplicate username: %s", u.Username)
		}
		if u.Name == "" {
			u.Name = u.Username
		}
		m[u.Username] = u
	}
	return &Store{users: m}, nil
}

// fileFormat は資格情報YAMLファイルの構造。
//
//	credentials:
//	  usernames:
//	    client1:
//	      name: Client One
//	      password: password1
type fileFormat struct {
	Credentials struct {
		Usernames map[string]struct {
			Name     string `yaml:"name"`
			Password string `yaml:"password"`
		} `yaml:"usernames"`
	} `yaml:"credentials"`
}

// LoadFile はYAMLファイルからStoreを読み込む。
func LoadFile(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return Parse(b)
}

// Parse はYAMLの内容からStoreを生成する。
func Parse(b []byte) (*Store, error) {
	var f fileFormat
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	if len(f.Credentials.Usernames) == 0 {
		return nil, errors.New("credentials file defines no users")
	}

	names := make([]string, 0, len(f.Credentials.Usernames))
	for name := range f.Credentials.Usernames {
		names = append(names, name)
	}
	sort.Strings(names)

	users := make([]model.User, 0, len(names))
	for _, name := range names {
		entry := f.Credentials.Usernames[name]
		users = append(users, model.User{
			Username: name,
			Name:     entry.Name,
			Password: entry.Password,
		})
	}
	return NewStore(users)
}

// Lookup はユーザー名に対応するユーザーを返す。
func (s *Store) Lookup(username string) (model.User, bool) {
	u, ok := s.users[username]
	return u, ok
}

// Len は登録ユーザー数を返す。
func (s *Store) Len() int {
	return len(s.users)
}

// Authenticate はユーザー名とパスワードの組を照合し、認証状態を返す。
// 両方とも空の場合はAuthPendingを返す。
// 登録されていないユーザー名およびパスワード不一致はAuthRejectedとなる。
func (s *Store) Authenticate(username, password string) model.AuthState {
	if username == "" && password == "" {
		return model.AuthPending
	}

	u, ok := s.users[username]
	if !ok {
		return model.AuthRejected
	}
	if !passwordMatches(u.Password, password) {
		return model.AuthRejected
	}
	return model.AuthAuthenticated
}

// passwordMatches は保存値とのパスワード照合を行う。
// 保存値がbcryptハッシュの場合はbcryptで比較し、それ以外は完全一致で比較する。
func passwordMatches(stored, given string) bool {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func isBcryptHash(s string) bool {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
