package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/mwalimu/elimika/core/user"
)

func Test_userApi_login(t *testing.T) {
	usr := createUser(t, "Login User", "login-user", "login-user@test.cd", []string{user.RoleStudent}, true)
	inactive := createUser(t, "Inactive", "login-inactive", "login-inactive@test.cd", []string{user.RoleStudent}, false)

	tests := []httpTest{
		{
			name: "empty body", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, map[string]string{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, map[string]string{"username": "lol", "password": "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, map[string]string{"username": usr.Username, "password": "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, map[string]string{"username": inactive.Username, "password": "Y3yeZHKqPe5Kt29q"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "login with username", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, map[string]string{"username": usr.Username, "password": "Y3yeZHKqPe5Kt29q"}),
			wantCode: http.StatusOK,
		},
		{
			name: "login with email", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, map[string]string{"username": usr.Email, "password": "Y3yeZHKqPe5Kt29q"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if rec.Code == http.StatusOK {
				var resp struct {
					Token string `json:"token"`
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshalling response: %v", err)
				}
				if resp.Token == "" {
					t.Error("expected a token")
				}
			}
		})
	}
}

func Test_userApi_register(t *testing.T) {
	student := createUser(t, "Student", "reg-student", "reg-student@test.cd", []string{user.RoleStudent}, true)
	admin := createUser(t, "Admin", "reg-admin", "reg-admin@test.cd", []string{user.RoleAdmin}, true)

	newUser := func(uname, email string, roles ...string) []byte {
		return marchallObj(t, map[string]interface{}{
			"name":             "New User",
			"username":         uname,
			"email":            email,
			"password":         "Y3yeZ#KqPe5Kt29q",
			"password_confirm": "Y3yeZ#KqPe5Kt29q",
			"roles":            roles,
		})
	}

	tests := []httpTest{
		{
			name: "requires auth", method: http.MethodPost, path: "/v1/users/register",
			body:     newUser("newbie", "newbie@test.cd", user.RoleStudent),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "requires admin", method: http.MethodPost, path: "/v1/users/register",
			token: getToken(t, student), body: newUser("newbie", "newbie@test.cd", user.RoleStudent),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "cannot grant a higher role", method: http.MethodPost, path: "/v1/users/register",
			token: getToken(t, admin), body: newUser("newbie", "newbie@test.cd", user.RoleAdminOwner),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{
			name: "registers", method: http.MethodPost, path: "/v1/users/register",
			token: getToken(t, admin), body: newUser("newbie", "newbie@test.cd", user.RoleStudent),
			wantCode: http.StatusCreated,
		},
		{
			name: "duplicate username", method: http.MethodPost, path: "/v1/users/register",
			token: getToken(t, admin), body: newUser("newbie", "other@test.cd", user.RoleStudent),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "query requires admin", method: http.MethodGet, path: "/v1/users",
			token:    getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "admin queries all", method: http.MethodGet, path: "/v1/users",
			token:    getToken(t, admin),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
