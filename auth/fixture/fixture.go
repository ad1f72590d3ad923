// SPDX-License-Identifier: MIT

package fixture

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/emberfall/fireauth/rest"
)

// New spins up the in-process identity service. Callers own the returned
// server and must Close it.
func New(apiKey rest.APIKey) *Server {
	srv := &Server{
		users:         make(map[string]*User),
		refreshTokens: make(map[rest.RefreshToken]string),
		idTokens:      make(map[rest.IDToken]*issuedToken),
		oobCodes:      make(map[string]*oobCode),
		apiKey:        apiKey,
		expiresIn:     defaultExpiresInSeconds,
	}
	srv.Server = httptest.NewServer(http.HandlerFunc(srv.handle))

	return srv
}

func (s *Server) Calls() []*Call {
	s.mx.Lock()
	defer s.mx.Unlock()

	return append(make([]*Call, 0, len(s.calls)), s.calls...)
}

func (s *Server) CallsTo(endpoint string) int {
	count := 0
	for _, call := range s.Calls() {
		if strings.HasSuffix(call.Endpoint, endpoint) {
			count++
		}
	}

	return count
}

func (s *Server) ResetCalls() {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.calls = nil
}

// SetExpiresIn controls the lifetime, in seconds, advertised with every token
// issued from now on.
func (s *Server) SetExpiresIn(seconds int64) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.expiresIn = seconds
}

// ExpireIDToken makes the service reject the given id token with TOKEN_EXPIRED
// from now on, while its refresh token stays valid.
func (s *Server) ExpireIDToken(idToken rest.IDToken) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if tok, found := s.idTokens[idToken]; found {
		tok.expired = true
	}
}

// RegisterUser pre-provisions an email+password account without going through
// the signUp endpoint.
func (s *Server) RegisterUser(email rest.Email, password rest.Password) *User {
	s.mx.Lock()
	defer s.mx.Unlock()
	usr := &User{LocalID: uuid.NewString(), Email: email, Password: password, Providers: []rest.ProviderID{rest.ProviderPassword}}
	s.users[usr.LocalID] = usr

	return usr
}

func (s *Server) User(localID string) *User {
	s.mx.Lock()
	defer s.mx.Unlock()

	return s.users[localID]
}

// LastOobCode returns the most recently generated out-of-band code, the way a
// user would read it out of the email.
func (s *Server) LastOobCode() string {
	s.mx.Lock()
	defer s.mx.Unlock()

	return s.lastOobCode
}

//nolint:funlen,gocyclo,revive,cyclop // Flat endpoint router.
func (s *Server) handle(writer http.ResponseWriter, request *http.Request) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.calls = append(s.calls, &Call{Endpoint: request.URL.Path, ContentType: request.Header.Get("Content-Type")})
	if rest.APIKey(request.URL.Query().Get("key")) != s.apiKey {
		s.writeError(writer, http.StatusBadRequest, "INVALID_API_KEY")

		return
	}
	if request.URL.Path == "/token" {
		s.handleTokenExchange(writer, request)

		return
	}
	if contentType := request.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "application/json") {
		s.writeError(writer, http.StatusBadRequest, fmt.Sprintf("Invalid JSON payload received. Unexpected content type: %v", contentType))

		return
	}
	var body map[string]any
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		s.writeError(writer, http.StatusBadRequest, "Invalid JSON payload received. "+err.Error())

		return
	}
	switch request.URL.Path {
	case "/accounts:signUp":
		s.handleSignUp(writer, body)
	case "/accounts:signInWithPassword":
		s.handleSignInWithPassword(writer, body)
	case "/accounts:signInWithCustomToken":
		s.handleSignInWithCustomToken(writer, body)
	case "/accounts:signInWithIdp":
		s.handleSignInWithIdp(writer, body)
	case "/accounts:createAuthUri":
		s.handleCreateAuthURI(writer, body)
	case "/accounts:sendOobCode":
		s.handleSendOobCode(writer, body)
	case "/accounts:resetPassword":
		s.handleResetPassword(writer, body)
	case "/accounts:update":
		s.handleUpdate(writer, body)
	case "/accounts:lookup":
		s.handleLookup(writer, body)
	case "/accounts:delete":
		s.handleDelete(writer, body)
	default:
		s.writeError(writer, http.StatusNotFound, "UNKNOWN_ENDPOINT")
	}
}

func (s *Server) handleTokenExchange(writer http.ResponseWriter, request *http.Request) {
	if contentType := request.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		s.writeError(writer, http.StatusBadRequest, fmt.Sprintf("Invalid JSON payload received. Unexpected content type: %v", contentType))

		return
	}
	if err := request.ParseForm(); err != nil {
		s.writeError(writer, http.StatusBadRequest, "MISSING_REFRESH_TOKEN")

		return
	}
	if request.PostForm.Get("grant_type") != "refresh_token" {
		s.writeError(writer, http.StatusBadRequest, "INVALID_GRANT_TYPE")

		return
	}
	refreshToken := rest.RefreshToken(request.PostForm.Get("refresh_token"))
	if refreshToken == "" {
		s.writeError(writer, http.StatusBadRequest, "MISSING_REFRESH_TOKEN")

		return
	}
	localID, found := s.refreshTokens[refreshToken]
	if !found {
		s.writeError(writer, http.StatusBadRequest, "INVALID_REFRESH_TOKEN")

		return
	}
	delete(s.refreshTokens, refreshToken)
	idToken, newRefreshToken := s.issueTokens(localID)
	s.writeJSON(writer, map[string]any{
		"expires_in":    fmt.Sprint(s.expiresIn),
		"token_type":    "Bearer",
		"refresh_token": newRefreshToken,
		"id_token":      idToken,
		"user_id":       localID,
		"project_id":    "000000000000",
	})
}

func (s *Server) handleSignUp(writer http.ResponseWriter, body map[string]any) {
	email, _ := body["email"].(string)       //nolint:errcheck // Absence means anonymous.
	password, _ := body["password"].(string) //nolint:errcheck // Absence means anonymous.
	if email == "" { // Anonymous sign up.
		usr := &User{LocalID: uuid.NewString()}
		s.users[usr.LocalID] = usr
		idToken, refreshToken := s.issueTokens(usr.LocalID)
		s.writeJSON(writer, map[string]any{
			"idToken":      idToken,
			"refreshToken": refreshToken,
			"expiresIn":    fmt.Sprint(s.expiresIn),
			"localId":      usr.LocalID,
		})

		return
	}
	if s.userByEmail(rest.Email(email)) != nil {
		s.writeError(writer, http.StatusBadRequest, "EMAIL_EXISTS")

		return
	}
	usr := &User{LocalID: uuid.NewString(), Email: rest.Email(email), Password: rest.Password(password), Providers: []rest.ProviderID{rest.ProviderPassword}}
	s.users[usr.LocalID] = usr
	idToken, refreshToken := s.issueTokens(usr.LocalID)
	s.writeJSON(writer, map[string]any{
		"idToken":      idToken,
		"email":        usr.Email,
		"refreshToken": refreshToken,
		"expiresIn":    fmt.Sprint(s.expiresIn),
		"localId":      usr.LocalID,
	})
}

func (s *Server) handleSignInWithPassword(writer http.ResponseWriter, body map[string]any) {
	email, _ := body["email"].(string)       //nolint:errcheck // Validated below.
	password, _ := body["password"].(string) //nolint:errcheck // Validated below.
	usr := s.userByEmail(rest.Email(email))
	if usr == nil {
		s.writeError(writer, http.StatusBadRequest, "EMAIL_NOT_FOUND")

		return
	}
	if usr.Disabled {
		s.writeError(writer, http.StatusBadRequest, "USER_DISABLED")

		return
	}
	if usr.Password != rest.Password(password) {
		s.writeError(writer, http.StatusBadRequest, "INVALID_PASSWORD")

		return
	}
	idToken, refreshToken := s.issueTokens(usr.LocalID)
	s.writeJSON(writer, map[string]any{
		"idToken":      idToken,
		"email":        usr.Email,
		"refreshToken": refreshToken,
		"expiresIn":    fmt.Sprint(s.expiresIn),
		"localId":      usr.LocalID,
		"registered":   true,
	})
}

func (s *Server) handleSignInWithCustomToken(writer http.ResponseWriter, body map[string]any) {
	token, _ := body["token"].(string) //nolint:errcheck // Validated below.
	if token == "" || strings.HasPrefix(token, "invalid") {
		s.writeError(writer, http.StatusBadRequest, "INVALID_CUSTOM_TOKEN")

		return
	}
	usr := &User{LocalID: uuid.NewString()}
	s.users[usr.LocalID] = usr
	idToken, refreshToken := s.issueTokens(usr.LocalID)
	s.writeJSON(writer, map[string]any{
		"idToken":      idToken,
		"refreshToken": refreshToken,
		"expiresIn":    fmt.Sprint(s.expiresIn),
	})
}

func (s *Server) handleSignInWithIdp(writer http.ResponseWriter, body map[string]any) {
	postBody, _ := body["postBody"].(string) //nolint:errcheck // Validated below.
	values, err := url.ParseQuery(postBody)
	if err != nil || values.Get("providerId") == "" || (values.Get("id_token") == "" && values.Get("access_token") == "") {
		s.writeError(writer, http.StatusBadRequest, "INVALID_IDP_RESPONSE")

		return
	}
	provider := rest.ProviderID(values.Get("providerId"))
	federatedID := "fed-" + values.Get("providerId")
	var usr *User
	if existingIDToken, hasIDToken := body["idToken"].(string); hasIDToken { // Link flow.
		existing, uErr := s.userByIDToken(rest.IDToken(existingIDToken))
		if uErr != "" {
			s.writeError(writer, http.StatusBadRequest, uErr)

			return
		}
		usr = existing
	} else {
		usr = &User{LocalID: uuid.NewString(), Email: rest.Email(values.Get("providerId") + "@example.com"), EmailVerified: true}
		s.users[usr.LocalID] = usr
	}
	usr.Providers = append(usr.Providers, provider)
	idToken, refreshToken := s.issueTokens(usr.LocalID)
	s.writeJSON(writer, map[string]any{
		"federatedId":   federatedID,
		"providerId":    provider,
		"localId":       usr.LocalID,
		"email":         usr.Email,
		"emailVerified": usr.EmailVerified,
		"rawUserInfo":   "{}",
		"idToken":       idToken,
		"refreshToken":  refreshToken,
		"expiresIn":     fmt.Sprint(s.expiresIn),
		"kind":          "identitytoolkit#VerifyAssertionResponse",
	})
}

func (s *Server) handleCreateAuthURI(writer http.ResponseWriter, body map[string]any) {
	identifier, _ := body["identifier"].(string) //nolint:errcheck // Validated below.
	usr := s.userByEmail(rest.Email(identifier))
	if usr == nil {
		s.writeJSON(writer, map[string]any{"registered": false})

		return
	}
	s.writeJSON(writer, map[string]any{"allProviders": usr.Providers, "registered": true})
}

func (s *Server) handleSendOobCode(writer http.ResponseWriter, body map[string]any) {
	requestType, _ := body["requestType"].(string) //nolint:errcheck // Validated below.
	var email rest.Email
	switch requestType {
	case "PASSWORD_RESET":
		rawEmail, _ := body["email"].(string) //nolint:errcheck // Validated below.
		if s.userByEmail(rest.Email(rawEmail)) == nil {
			s.writeError(writer, http.StatusBadRequest, "EMAIL_NOT_FOUND")

			return
		}
		email = rest.Email(rawEmail)
	case "VERIFY_EMAIL":
		idToken, _ := body["idToken"].(string) //nolint:errcheck // Validated below.
		usr, uErr := s.userByIDToken(rest.IDToken(idToken))
		if uErr != "" {
			s.writeError(writer, http.StatusBadRequest, uErr)

			return
		}
		email = usr.Email
	default:
		s.writeError(writer, http.StatusBadRequest, "Invalid JSON payload received. Unknown requestType")

		return
	}
	code := "oob-" + uuid.NewString()
	s.oobCodes[code] = &oobCode{email: email, requestType: requestType}
	s.lastOobCode = code
	s.writeJSON(writer, map[string]any{"email": email})
}

func (s *Server) handleResetPassword(writer http.ResponseWriter, body map[string]any) {
	code, _ := body["oobCode"].(string) //nolint:errcheck // Validated below.
	oob, found := s.oobCodes[code]
	if !found || oob.requestType != "PASSWORD_RESET" {
		s.writeError(writer, http.StatusBadRequest, "INVALID_OOB_CODE")

		return
	}
	if newPassword, hasNewPassword := body["newPassword"].(string); hasNewPassword {
		usr := s.userByEmail(oob.email)
		if usr == nil {
			s.writeError(writer, http.StatusBadRequest, "EMAIL_NOT_FOUND")

			return
		}
		usr.Password = rest.Password(newPassword)
		delete(s.oobCodes, code)
	}
	s.writeJSON(writer, map[string]any{"email": oob.email, "requestType": oob.requestType})
}

//nolint:funlen,gocyclo,revive,cyclop // The endpoint multiplexes every account mutation.
func (s *Server) handleUpdate(writer http.ResponseWriter, body map[string]any) {
	if code, hasOobCode := body["oobCode"].(string); hasOobCode { // Confirm email verification.
		oob, found := s.oobCodes[code]
		if !found || oob.requestType != "VERIFY_EMAIL" {
			s.writeError(writer, http.StatusBadRequest, "INVALID_OOB_CODE")

			return
		}
		usr := s.userByEmail(oob.email)
		if usr == nil {
			s.writeError(writer, http.StatusBadRequest, "USER_NOT_FOUND")

			return
		}
		usr.EmailVerified = true
		delete(s.oobCodes, code)
		s.writeJSON(writer, map[string]any{"email": usr.Email, "emailVerified": true})

		return
	}
	idToken, _ := body["idToken"].(string) //nolint:errcheck // Validated below.
	usr, uErr := s.userByIDToken(rest.IDToken(idToken))
	if uErr != "" {
		s.writeError(writer, http.StatusBadRequest, uErr)

		return
	}
	response := map[string]any{"localId": usr.LocalID, "email": usr.Email}
	rotate := false
	switch {
	case body["deleteProvider"] != nil:
		rawProviders, _ := body["deleteProvider"].([]any) //nolint:errcheck // Schema is fixed.
		for _, rawProvider := range rawProviders {
			provider, _ := rawProvider.(string) //nolint:errcheck // Schema is fixed.
			usr.Providers = removeProvider(usr.Providers, rest.ProviderID(provider))
		}
	case body["email"] != nil && body["password"] != nil: // Link email+password.
		email, _ := body["email"].(string)       //nolint:errcheck // Schema is fixed.
		password, _ := body["password"].(string) //nolint:errcheck // Schema is fixed.
		if existing := s.userByEmail(rest.Email(email)); existing != nil && existing.LocalID != usr.LocalID {
			s.writeError(writer, http.StatusBadRequest, "EMAIL_EXISTS")

			return
		}
		usr.Email, usr.Password = rest.Email(email), rest.Password(password)
		usr.Providers = append(usr.Providers, rest.ProviderPassword)
		response["email"] = usr.Email
		rotate = true
	case body["password"] != nil:
		password, _ := body["password"].(string) //nolint:errcheck // Schema is fixed.
		if len(password) < 6 { //nolint:mnd,gomnd // Remote's minimum.
			s.writeError(writer, http.StatusBadRequest, "WEAK_PASSWORD : Password should be at least 6 characters")

			return
		}
		usr.Password = rest.Password(password)
		rotate = true
	case body["email"] != nil:
		email, _ := body["email"].(string) //nolint:errcheck // Schema is fixed.
		if existing := s.userByEmail(rest.Email(email)); existing != nil && existing.LocalID != usr.LocalID {
			s.writeError(writer, http.StatusBadRequest, "EMAIL_EXISTS")

			return
		}
		usr.Email = rest.Email(email)
		usr.EmailVerified = false
		response["email"] = usr.Email
		rotate = true
	default: // Profile update.
		if displayName, hasDisplayName := body["displayName"].(string); hasDisplayName {
			usr.DisplayName = displayName
		}
		if photoURL, hasPhotoURL := body["photoUrl"].(string); hasPhotoURL {
			usr.PhotoURL = photoURL
		}
		if rawAttributes, hasDeletes := body["deleteAttribute"].([]any); hasDeletes {
			for _, rawAttribute := range rawAttributes {
				switch rawAttribute {
				case "DISPLAY_NAME":
					usr.DisplayName = ""
				case "PHOTO_URL":
					usr.PhotoURL = ""
				}
			}
		}
		response["displayName"], response["photoUrl"] = usr.DisplayName, usr.PhotoURL
		rotate = true
	}
	if rotate {
		newIDToken, newRefreshToken := s.issueTokens(usr.LocalID)
		response["idToken"], response["refreshToken"], response["expiresIn"] = newIDToken, newRefreshToken, fmt.Sprint(s.expiresIn)
	}
	s.writeJSON(writer, response)
}

func (s *Server) handleLookup(writer http.ResponseWriter, body map[string]any) {
	idToken, _ := body["idToken"].(string) //nolint:errcheck // Validated below.
	usr, uErr := s.userByIDToken(rest.IDToken(idToken))
	if uErr != "" {
		s.writeError(writer, http.StatusBadRequest, uErr)

		return
	}
	providerInfo := make([]map[string]any, 0, len(usr.Providers))
	for _, provider := range usr.Providers {
		providerInfo = append(providerInfo, map[string]any{"providerId": provider, "federatedId": string(usr.Email)})
	}
	s.writeJSON(writer, map[string]any{"users": []map[string]any{{
		"localId":          usr.LocalID,
		"email":            usr.Email,
		"emailVerified":    usr.EmailVerified,
		"displayName":      usr.DisplayName,
		"photoUrl":         usr.PhotoURL,
		"disabled":         usr.Disabled,
		"providerUserInfo": providerInfo,
	}}})
}

func (s *Server) handleDelete(writer http.ResponseWriter, body map[string]any) {
	idToken, _ := body["idToken"].(string) //nolint:errcheck // Validated below.
	usr, uErr := s.userByIDToken(rest.IDToken(idToken))
	if uErr != "" {
		s.writeError(writer, http.StatusBadRequest, uErr)

		return
	}
	delete(s.users, usr.LocalID)
	for token, tok := range s.idTokens {
		if tok.localID == usr.LocalID {
			delete(s.idTokens, token)
		}
	}
	for token, localID := range s.refreshTokens {
		if localID == usr.LocalID {
			delete(s.refreshTokens, token)
		}
	}
	s.writeJSON(writer, map[string]any{})
}

func (s *Server) issueTokens(localID string) (rest.IDToken, rest.RefreshToken) {
	idToken := rest.IDToken("id-" + uuid.NewString())
	refreshToken := rest.RefreshToken("refresh-" + uuid.NewString())
	s.idTokens[idToken] = &issuedToken{localID: localID}
	s.refreshTokens[refreshToken] = localID

	return idToken, refreshToken
}

func (s *Server) userByEmail(email rest.Email) *User {
	if email == "" {
		return nil
	}
	for _, usr := range s.users {
		if usr.Email == email {
			return usr
		}
	}

	return nil
}

func (s *Server) userByIDToken(idToken rest.IDToken) (*User, string) {
	tok, found := s.idTokens[idToken]
	if !found {
		return nil, "INVALID_ID_TOKEN"
	}
	if tok.expired {
		return nil, "TOKEN_EXPIRED"
	}
	usr, found := s.users[tok.localID]
	if !found {
		return nil, "USER_NOT_FOUND"
	}

	return usr, ""
}

func (s *Server) writeJSON(writer http.ResponseWriter, body any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(writer).Encode(body) //nolint:errcheck // Best effort.
}

func (s *Server) writeError(writer http.ResponseWriter, statusCode int, message string) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(map[string]any{"error": map[string]any{ //nolint:errcheck // Best effort.
		"code":    statusCode,
		"message": message,
		"errors":  []map[string]any{{"domain": "global", "reason": "invalid", "message": message}},
	}})
}

func removeProvider(providers []rest.ProviderID, provider rest.ProviderID) []rest.ProviderID {
	kept := make([]rest.ProviderID, 0, len(providers))
	for _, candidate := range providers {
		if candidate != provider {
			kept = append(kept, candidate)
		}
	}

	return kept
}
