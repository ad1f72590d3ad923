// SPDX-License-Identifier: MIT

package rest

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

func newAPIError(statusCode int, response *ErrorResponse) *APIError {
	code := CodeUnknown
	message := ""
	if response != nil && response.Error != nil {
		code = parseCommonErrorCode(response.Error.Message)
		message = response.Error.Message
	}

	return &APIError{
		error:      errors.Errorf("api error: statusCode:%v, code:%v, message:%v", statusCode, code, message),
		Response:   response,
		Code:       code,
		StatusCode: statusCode,
	}
}

// AsAPIError unwraps err into an *APIError, or returns nil if the chain
// contains none.
func AsAPIError(err error) *APIError {
	apiErr := new(APIError)
	if ok := errors.As(err, apiErr); ok {
		return apiErr
	}

	return nil
}

func (e *APIError) Is(er error) bool {
	return errors.Is(er, e.error)
}

func (e *APIError) Unwrap() error {
	return e.error
}

func (e *APIError) As(err any) bool {
	o, ok := err.(*APIError)
	if ok {
		*o = *e
	}

	return ok
}

// IsInvalidIDToken reports whether err is an API error caused by an expired or
// otherwise rejected id token, meaning the credential needs to be refreshed.
func IsInvalidIDToken(err error) bool {
	if errors.Is(err, ErrInvalidIDToken) {
		return true
	}
	if apiErr := AsAPIError(err); apiErr != nil {
		return apiErr.Code == CodeInvalidIDToken || apiErr.Code == CodeTokenExpired
	}

	return false
}

func parseAPIError(statusCode int, respBody []byte) error {
	var response ErrorResponse
	if err := json.Unmarshal(respBody, &response); err != nil || response.Error == nil {
		return errors.Wrapf(ErrDeserializeResponse, "api call failed with statusCode:%v, and the response is not a recognizable error envelope: %v", statusCode, string(respBody)) //nolint:lll // .
	}

	return newAPIError(statusCode, &response)
}

//nolint:funlen,gocyclo,revive,cyclop // It's a flat mapping of every documented remote error message.
func parseCommonErrorCode(message string) CommonErrorCode {
	switch {
	case strings.HasPrefix(message, "OPERATION_NOT_ALLOWED"):
		return CodeOperationNotAllowed
	case message == "TOO_MANY_ATTEMPTS_TRY_LATER":
		return CodeTooManyAttemptsTryLater
	case message == "INVALID_API_KEY":
		return CodeInvalidAPIKey
	case message == "INVALID_CUSTOM_TOKEN":
		return CodeInvalidCustomToken
	case message == "INVALID_ID_TOKEN":
		return CodeInvalidIDToken
	case message == "INVALID_REFRESH_TOKEN":
		return CodeInvalidRefreshToken
	case strings.HasPrefix(message, "Invalid JSON payload received"):
		return CodeInvalidJSONPayloadReceived
	case message == "INVALID_GRANT_TYPE":
		return CodeInvalidGrantType
	case message == "INVALID_PASSWORD":
		return CodeInvalidPassword
	case message == "INVALID_IDP_RESPONSE":
		return CodeInvalidIdpResponse
	case strings.HasPrefix(message, "INVALID_CREDENTIAL_OR_PROVIDER_ID"):
		return CodeInvalidCredentialOrProvider
	case message == "INVALID_EMAIL":
		return CodeInvalidEmail
	case message == "INVALID_LOGIN_CREDENTIALS":
		return CodeInvalidLoginCredentials
	case message == "CREDENTIAL_MISMATCH":
		return CodeCredentialMismatch
	case message == "CREDENTIAL_TOO_OLD_LOGIN_AGAIN":
		return CodeCredentialTooOldLoginAgain
	case message == "TOKEN_EXPIRED":
		return CodeTokenExpired
	case message == "USER_DISABLED":
		return CodeUserDisabled
	case message == "USER_NOT_FOUND":
		return CodeUserNotFound
	case message == "MISSING_REFRESH_TOKEN":
		return CodeMissingRefreshToken
	case message == "EMAIL_EXISTS":
		return CodeEmailExists
	case message == "EMAIL_NOT_FOUND":
		return CodeEmailNotFound
	case strings.HasPrefix(message, "WEAK_PASSWORD"):
		return CodeWeakPassword
	case message == "FEDERATED_USER_ID_ALREADY_LINKED":
		return CodeFederatedUserIDAlreadyLinked
	case message == "EXPIRED_OOB_CODE":
		return CodeExpiredOobCode
	case message == "INVALID_OOB_CODE":
		return CodeInvalidOobCode
	case message == "ADMIN_ONLY_OPERATION":
		return CodeAdminOnlyOperation
	default:
		return CodeUnknown
	}
}
