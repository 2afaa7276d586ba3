package api

// Постоянные значения конвертов Xbox Live
const (
	XboxAuthMethod      = "RPS"
	XboxSiteName        = "user.auth.xboxlive.com"
	XboxRelyingParty    = "http://auth.xboxlive.com"
	XSTSRelyingParty    = "rp://api.minecraftservices.com/"
	XSTSSandboxID       = "RETAIL"
	XboxTokenTypeJWT    = "JWT"
	XboxRpsTicketPrefix = "d="
)

// XErr коды XSTS при ответе 401
const (
	XErrNoXbox          int64 = 2148916233
	XErrXboxUnavailable int64 = 2148916235
	XErrAdultRequired   int64 = 2148916236
	XErrAdultVerify     int64 = 2148916237
	XErrChildAccount    int64 = 2148916238
)

// XboxAuthProperties свойства запроса аутентификации Xbox Live
type XboxAuthProperties struct {
	AuthMethod string `json:"AuthMethod"`
	SiteName   string `json:"SiteName"`
	RpsTicket  string `json:"RpsTicket"`
}

// XboxAuthRequest запрос токена Xbox Live по access token Microsoft
type XboxAuthRequest struct {
	Properties   XboxAuthProperties `json:"Properties"`
	RelyingParty string             `json:"RelyingParty"`
	TokenType    string             `json:"TokenType"`
}

// XSTSProperties свойства запроса XSTS
type XSTSProperties struct {
	SandboxID  string   `json:"SandboxId"`
	UserTokens []string `json:"UserTokens"`
}

// XSTSRequest запрос XSTS токена по токену Xbox Live
type XSTSRequest struct {
	Properties   XSTSProperties `json:"Properties"`
	RelyingParty string         `json:"RelyingParty"`
	TokenType    string         `json:"TokenType"`
}

// XboxUserClaim элемент DisplayClaims.xui
type XboxUserClaim struct {
	UserHash string `json:"uhs"`
}

// XboxTokenResponse ответ Xbox Live и XSTS
type XboxTokenResponse struct {
	IssueInstant  string `json:"IssueInstant,omitempty"`
	NotAfter      string `json:"NotAfter,omitempty"`
	Token         string `json:"Token"`
	DisplayClaims struct {
		Xui []XboxUserClaim `json:"xui"`
	} `json:"DisplayClaims"`
}

// XboxErrorResponse тело ответа 401 от XSTS
type XboxErrorResponse struct {
	Identity string `json:"Identity,omitempty"`
	Message  string `json:"Message,omitempty"`
	Redirect string `json:"Redirect,omitempty"`
	XErr     int64  `json:"XErr"`
}
