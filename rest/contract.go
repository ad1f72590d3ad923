// SPDX-License-Identifier: MIT

package rest

import (
	stdlibtime "time"

	"github.com/imroc/req/v3"
	"github.com/pkg/errors"
)

// Public API.

const (
	ProviderPassword        ProviderID = "password"
	ProviderPhone           ProviderID = "phone"
	ProviderApple           ProviderID = "apple.com"
	ProviderAppleGameCenter ProviderID = "gc.apple.com"
	ProviderFacebook        ProviderID = "facebook.com"
	ProviderGitHub          ProviderID = "github.com"
	ProviderGoogle          ProviderID = "google.com"
	ProviderGooglePlayGames ProviderID = "playgames.google.com"
	ProviderLinkedIn        ProviderID = "linkedin.com"
	ProviderMicrosoft       ProviderID = "microsoft.com"
	ProviderTwitter         ProviderID = "twitter.com"
	ProviderYahoo           ProviderID = "yahoo.com"
)

const (
	CodeOperationNotAllowed          CommonErrorCode = "OPERATION_NOT_ALLOWED"
	CodeTooManyAttemptsTryLater      CommonErrorCode = "TOO_MANY_ATTEMPTS_TRY_LATER"
	CodeInvalidAPIKey                CommonErrorCode = "INVALID_API_KEY"
	CodeInvalidCustomToken           CommonErrorCode = "INVALID_CUSTOM_TOKEN"
	CodeInvalidIDToken               CommonErrorCode = "INVALID_ID_TOKEN"
	CodeInvalidRefreshToken          CommonErrorCode = "INVALID_REFRESH_TOKEN"
	CodeInvalidJSONPayloadReceived   CommonErrorCode = "INVALID_JSON_PAYLOAD_RECEIVED"
	CodeInvalidGrantType             CommonErrorCode = "INVALID_GRANT_TYPE"
	CodeInvalidPassword              CommonErrorCode = "INVALID_PASSWORD"
	CodeInvalidIdpResponse           CommonErrorCode = "INVALID_IDP_RESPONSE"
	CodeInvalidCredentialOrProvider  CommonErrorCode = "INVALID_CREDENTIAL_OR_PROVIDER_ID"
	CodeInvalidEmail                 CommonErrorCode = "INVALID_EMAIL"
	CodeInvalidLoginCredentials      CommonErrorCode = "INVALID_LOGIN_CREDENTIALS"
	CodeCredentialMismatch           CommonErrorCode = "CREDENTIAL_MISMATCH"
	CodeCredentialTooOldLoginAgain   CommonErrorCode = "CREDENTIAL_TOO_OLD_LOGIN_AGAIN"
	CodeTokenExpired                 CommonErrorCode = "TOKEN_EXPIRED"
	CodeUserDisabled                 CommonErrorCode = "USER_DISABLED"
	CodeUserNotFound                 CommonErrorCode = "USER_NOT_FOUND"
	CodeMissingRefreshToken          CommonErrorCode = "MISSING_REFRESH_TOKEN"
	CodeEmailExists                  CommonErrorCode = "EMAIL_EXISTS"
	CodeEmailNotFound                CommonErrorCode = "EMAIL_NOT_FOUND"
	CodeWeakPassword                 CommonErrorCode = "WEAK_PASSWORD"
	CodeFederatedUserIDAlreadyLinked CommonErrorCode = "FEDERATED_USER_ID_ALREADY_LINKED"
	CodeExpiredOobCode               CommonErrorCode = "EXPIRED_OOB_CODE"
	CodeInvalidOobCode               CommonErrorCode = "INVALID_OOB_CODE"
	CodeAdminOnlyOperation           CommonErrorCode = "ADMIN_ONLY_OPERATION"
	CodeUnknown                      CommonErrorCode = "UNKNOWN"
)

var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrDeserializeResponse = errors.New("failed to deserialize response")
	ErrInvalidIDToken      = errors.New("invalid id token")
	ErrNoUserData          = errors.New("no user data found in response")
)

type (
	APIKey       string
	ProjectID    string
	Email        string
	Password     string
	IDToken      string
	RefreshToken string
	ProviderID   string
	LanguageCode string

	// CommonErrorCode is the normalized identifier of a remote error condition,
	// parsed from the free-text `message` field of the error envelope.
	CommonErrorCode string

	// APIError is returned when the remote service responded with a non-success
	// status and a recognizable structured error envelope.
	APIError struct {
		error
		Response   *ErrorResponse  `json:"response,omitempty"`
		Code       CommonErrorCode `json:"code,omitempty"`
		StatusCode int             `json:"statusCode,omitempty"`
	}
	ErrorResponse struct {
		Error *ErrorDetail `json:"error"`
	}
	ErrorDetail struct {
		Errors  []*ErrorElement `json:"errors,omitempty"`
		Message string          `json:"message"`
		Code    int64           `json:"code"`
	}
	ErrorElement struct {
		Domain  string `json:"domain"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
	}

	// IdpPostBody is the url-encoded credential blob forwarded to the
	// accounts:signInWithIdp endpoint. Use the per-provider constructors.
	IdpPostBody struct {
		Query    string
		Provider ProviderID
	}

	ProviderUserInfo struct {
		ProviderID  ProviderID `json:"providerId"`
		FederatedID string     `json:"federatedId"`
		DisplayName string     `json:"displayName,omitempty"`
		PhotoURL    string     `json:"photoUrl,omitempty"`
		Email       string     `json:"email,omitempty"`
		RawID       string     `json:"rawId,omitempty"`
		ScreenName  string     `json:"screenName,omitempty"`
	}

	UserData struct {
		LocalID           string              `json:"localId"`
		Email             string              `json:"email,omitempty"`
		DisplayName       string              `json:"displayName,omitempty"`
		PhotoURL          string              `json:"photoUrl,omitempty"`
		PasswordHash      string              `json:"passwordHash,omitempty"`
		PasswordUpdatedAt float64             `json:"passwordUpdatedAt,omitempty"`
		ValidSince        string              `json:"validSince,omitempty"`
		LastLoginAt       string              `json:"lastLoginAt,omitempty"`
		CreatedAt         string              `json:"createdAt,omitempty"`
		LastRefreshAt     string              `json:"lastRefreshAt,omitempty"`
		ProviderUserInfo  []*ProviderUserInfo `json:"providerUserInfo,omitempty"`
		EmailVerified     bool                `json:"emailVerified"`
		Disabled          bool                `json:"disabled"`
		CustomAuth        bool                `json:"customAuth,omitempty"`
	}

	// Client issues exactly one HTTP call per operation. No retries, no
	// caching; retry policy is the caller's responsibility.
	Client struct {
		http *req.Client
		cfg  *config
	}
	Option func(*Client)

	SignUpResponse struct {
		IDToken      IDToken      `json:"idToken"`
		Email        Email        `json:"email,omitempty"`
		RefreshToken RefreshToken `json:"refreshToken"`
		ExpiresIn    string       `json:"expiresIn"`
		LocalID      string       `json:"localId"`
	}
	SignInWithEmailPasswordResponse struct {
		IDToken      IDToken      `json:"idToken"`
		Email        Email        `json:"email"`
		RefreshToken RefreshToken `json:"refreshToken"`
		ExpiresIn    string       `json:"expiresIn"`
		LocalID      string       `json:"localId"`
		Registered   bool         `json:"registered"`
	}
	SignInWithCustomTokenResponse struct {
		IDToken      IDToken      `json:"idToken"`
		RefreshToken RefreshToken `json:"refreshToken"`
		ExpiresIn    string       `json:"expiresIn"`
	}
	// ExchangeRefreshTokenResponse comes from the securetoken host, which
	// answers in snake_case, unlike the account endpoints.
	ExchangeRefreshTokenResponse struct {
		ExpiresIn    string       `json:"expires_in"`    //nolint:tagliatelle // Remote schema.
		TokenType    string       `json:"token_type"`    //nolint:tagliatelle // Remote schema.
		RefreshToken RefreshToken `json:"refresh_token"` //nolint:tagliatelle // Remote schema.
		IDToken      IDToken      `json:"id_token"`      //nolint:tagliatelle // Remote schema.
		UserID       string       `json:"user_id"`       //nolint:tagliatelle // Remote schema.
		ProjectID    string       `json:"project_id"`    //nolint:tagliatelle // Remote schema.
	}
	SignInWithIdpResponse struct {
		FederatedID      string       `json:"federatedId"`
		ProviderID       ProviderID   `json:"providerId"`
		LocalID          string       `json:"localId"`
		Email            Email        `json:"email,omitempty"`
		OauthIDToken     string       `json:"oauthIdToken,omitempty"`
		OauthAccessToken string       `json:"oauthAccessToken,omitempty"`
		OauthTokenSecret string       `json:"oauthTokenSecret,omitempty"`
		RawUserInfo      string       `json:"rawUserInfo"`
		FirstName        string       `json:"firstName,omitempty"`
		LastName         string       `json:"lastName,omitempty"`
		FullName         string       `json:"fullName,omitempty"`
		DisplayName      string       `json:"displayName,omitempty"`
		PhotoURL         string       `json:"photoUrl,omitempty"`
		IDToken          IDToken      `json:"idToken"`
		RefreshToken     RefreshToken `json:"refreshToken"`
		ExpiresIn        string       `json:"expiresIn"`
		Kind             string       `json:"kind,omitempty"`
		EmailVerified    bool         `json:"emailVerified"`
		NeedConfirmation bool         `json:"needConfirmation,omitempty"`
	}
	FetchProvidersForEmailResponse struct {
		AllProviders []ProviderID `json:"allProviders,omitempty"`
		Registered   bool         `json:"registered,omitempty"`
	}
	SendOobCodeResponse struct {
		Email Email `json:"email"`
	}
	ResetPasswordResponse struct {
		Email       Email  `json:"email"`
		RequestType string `json:"requestType"`
	}
	ConfirmEmailVerificationResponse struct {
		Email            Email               `json:"email"`
		DisplayName      string              `json:"displayName,omitempty"`
		PhotoURL         string              `json:"photoUrl,omitempty"`
		PasswordHash     string              `json:"passwordHash,omitempty"`
		ProviderUserInfo []*ProviderUserInfo `json:"providerUserInfo,omitempty"`
		EmailVerified    bool                `json:"emailVerified"`
	}
	// UpdateAccountResponse is shared by the accounts:update flavours that can
	// optionally rotate the credential (email, password, profile updates).
	UpdateAccountResponse struct {
		LocalID          string              `json:"localId"`
		Email            Email               `json:"email,omitempty"`
		DisplayName      string              `json:"displayName,omitempty"`
		PhotoURL         string              `json:"photoUrl,omitempty"`
		PasswordHash     string              `json:"passwordHash,omitempty"`
		ProviderUserInfo []*ProviderUserInfo `json:"providerUserInfo,omitempty"`
		IDToken          IDToken             `json:"idToken,omitempty"`
		RefreshToken     RefreshToken        `json:"refreshToken,omitempty"`
		ExpiresIn        string              `json:"expiresIn,omitempty"`
	}
	LinkWithEmailPasswordResponse struct {
		LocalID          string              `json:"localId"`
		Email            Email               `json:"email"`
		DisplayName      string              `json:"displayName,omitempty"`
		PhotoURL         string              `json:"photoUrl,omitempty"`
		PasswordHash     string              `json:"passwordHash,omitempty"`
		ProviderUserInfo []*ProviderUserInfo `json:"providerUserInfo,omitempty"`
		IDToken          IDToken             `json:"idToken"`
		RefreshToken     RefreshToken        `json:"refreshToken"`
		ExpiresIn        string              `json:"expiresIn"`
		EmailVerified    bool                `json:"emailVerified"`
	}
	UnlinkProviderResponse struct {
		LocalID          string              `json:"localId"`
		Email            Email               `json:"email,omitempty"`
		DisplayName      string              `json:"displayName,omitempty"`
		PhotoURL         string              `json:"photoUrl,omitempty"`
		PasswordHash     string              `json:"passwordHash,omitempty"`
		ProviderUserInfo []*ProviderUserInfo `json:"providerUserInfo,omitempty"`
		EmailVerified    bool                `json:"emailVerified"`
	}
	GetUserDataResponse struct {
		Users []*UserData `json:"users"`
	}

	// UpdateProfileParams carries the optional profile mutations for
	// accounts:update. Nil fields are left untouched, Delete* flags schedule
	// attribute removal server-side.
	UpdateProfileParams struct {
		DisplayName       *string
		PhotoURL          *string
		DeleteDisplayName bool
		DeletePhotoURL    bool
	}
)

// Private API.

const (
	requestDeadline = 25 * stdlibtime.Second

	defaultBaseURL      = "https://identitytoolkit.googleapis.com/v1"
	defaultTokenBaseURL = "https://securetoken.googleapis.com/v1"

	endpointSignUp             = "accounts:signUp"
	endpointSignInWithPassword = "accounts:signInWithPassword"
	endpointSignInWithIdp      = "accounts:signInWithIdp"
	endpointSignInCustomToken  = "accounts:signInWithCustomToken"
	endpointCreateAuthURI      = "accounts:createAuthUri"
	endpointSendOobCode        = "accounts:sendOobCode"
	endpointResetPassword      = "accounts:resetPassword"
	endpointUpdate             = "accounts:update"
	endpointLookup             = "accounts:lookup"
	endpointDelete             = "accounts:delete"
	endpointToken              = "token"

	localeHeader = "X-Firebase-Locale"
)

type (
	config struct {
		RestAPI struct {
			BaseURL      string `yaml:"baseUrl" mapstructure:"baseUrl"`
			TokenBaseURL string `yaml:"tokenBaseUrl" mapstructure:"tokenBaseUrl"`
		} `yaml:"fireauth/rest" mapstructure:"fireauth/rest"` //nolint:tagliatelle // Nope.
	}
)
