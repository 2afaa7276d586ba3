package models

// Stage позиция сессии в последовательности шагов протокола
type Stage string

const (
	StageInit                Stage = "init"
	StageOpenBrowser         Stage = "open_browser"
	StageCodeReceived        Stage = "code_received"
	StageDeviceCodeRequested Stage = "device_code_requested"
	StagePolling             Stage = "polling"
	StageDecrypting          Stage = "decrypting"
	StageRefreshing          Stage = "refreshing"
	StageTokensObtained      Stage = "tokens_obtained"
	StageXboxToken           Stage = "xbox_token"
	StageXSTSToken           Stage = "xsts_token"
	StageGameAccessToken     Stage = "game_access_token"
	StageProfileObtained     Stage = "profile_obtained"
	StageEncrypting          Stage = "encrypting"
	StageDone                Stage = "done"
	StageFailed              Stage = "failed"
	StageCancelled           Stage = "cancelled"
)

// Terminal сообщает, является ли стадия конечной
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed || s == StageCancelled
}
