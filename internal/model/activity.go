package model

// ActivityRecord は1回の送信で入力された消費量を表す1行分のレコード。
// メモリ上とアップロードされたファイルにのみ存在し、更新されることはない。
type ActivityRecord struct {
	Username       string
	ElectricityKWh float64
	DieselLitre    float64
}

// UploadResult はアップロード結果を表す。
// 失敗時はReasonにエラー内容を保持し、例外として呼び出し元へ伝播させない。
type UploadResult struct {
	OK     bool
	Reason string
}

// UploadSucceeded は成功を表すUploadResultを返す。
func UploadSucceeded() UploadResult {
	return UploadResult{OK: true}
}

// UploadFailed は失敗理由付きのUploadResultを返す。
func UploadFailed(err error) UploadResult {
	return UploadResult{OK: false, Reason: err.Error()}
}
