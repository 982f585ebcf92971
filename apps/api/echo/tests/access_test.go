package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/mwalimu/elimika/core/course"
	"github.com/mwalimu/elimika/core/user"
)

func Test_accessApi(t *testing.T) {
	ctx := context.Background()

	student := createUser(t, "Student", "acc-student", "acc-student@test.cd", []string{user.RoleStudent}, true)
	admin := createUser(t, "Admin", "acc-admin", "acc-admin@test.cd", []string{user.RoleAdmin}, true)
	studentToken := getToken(t, student)
	adminToken := getToken(t, admin)

	crs, err := courseSvc.Create(ctx, course.NewCourse{Title: "Access 101"})
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	until := time.Now().UTC().Add(30 * 24 * time.Hour)

	tests := []httpTest{
		{
			name: "grant requires auth", method: http.MethodPut, path: "/v1/courses/" + crs.ID + "/access",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "grant requires admin", method: http.MethodPut, path: "/v1/courses/" + crs.ID + "/access",
			token: studentToken, body: marchallObj(t, map[string]interface{}{"user_id": student.ID}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "grant requires user_id", method: http.MethodPut, path: "/v1/courses/" + crs.ID + "/access",
			token: adminToken, body: marchallObj(t, map[string]interface{}{}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "check without grant", method: http.MethodGet, path: "/v1/courses/" + crs.ID + "/access",
			token:    studentToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, map[string]interface{}{"active": false, "access_until": nil}),
		},
		{
			name: "admin grants bounded access", method: http.MethodPut, path: "/v1/courses/" + crs.ID + "/access",
			token: adminToken, body: marchallObj(t, map[string]interface{}{"user_id": student.ID, "access_until": until}),
			wantCode: http.StatusOK,
		},
		{
			name: "check with grant", method: http.MethodGet, path: "/v1/courses/" + crs.ID + "/access",
			token:    studentToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, map[string]interface{}{"active": true, "access_until": until}),
		},
		{
			name: "re-grant perpetual overwrites", method: http.MethodPut, path: "/v1/courses/" + crs.ID + "/access",
			token: adminToken, body: marchallObj(t, map[string]interface{}{"user_id": student.ID}),
			wantCode: http.StatusOK,
		},
		{
			name: "check after overwrite", method: http.MethodGet, path: "/v1/courses/" + crs.ID + "/access",
			token:    studentToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, map[string]interface{}{"active": true, "access_until": nil}),
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
