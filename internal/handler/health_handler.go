package handler

import (
	"encoding/json"
	"net/http"
)

// Health はプロセスの死活状態を返す。
// アップロード先への疎通は確認しない（外部障害でコンテナを再起動させないため）。
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
