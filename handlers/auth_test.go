package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
)

func (s *E2ETestSuite) dupEmail() string {
	return "dup-" + s.guestEmailSuffix()
}

func (s *E2ETestSuite) Test01_RegisterDuplicateEmail() {
	body, _ := json.Marshal(map[string]string{
		"name":     "Dup",
		"email":    s.dupEmail(),
		"password": "password123",
	})
	resp, err := http.Post(s.baseURL+"/auth/register", "application/json", bytes.NewBuffer(body))
	s.NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusCreated, resp.StatusCode)

	body, _ = json.Marshal(map[string]string{
		"name":     "Dup Again",
		"email":    s.dupEmail(),
		"password": "password123",
	})
	resp, err = http.Post(s.baseURL+"/auth/register", "application/json", bytes.NewBuffer(body))
	s.NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusConflict, resp.StatusCode)
}

func (s *E2ETestSuite) Test02_LoginWrongPassword() {
	status, envelope := s.do("POST", "/auth/login", "", map[string]string{
		"email":    s.dupEmail(),
		"password": "wrong-password",
	})
	s.Equal(http.StatusUnauthorized, status)
	s.Equal(false, envelope["success"])
}

func (s *E2ETestSuite) Test03_MeRequiresToken() {
	status, _ := s.do("GET", "/auth/me", "", nil)
	s.Equal(http.StatusUnauthorized, status)
}

func (s *E2ETestSuite) Test04_MeReturnsProfile() {
	status, envelope := s.do("GET", "/auth/me", s.ownerToken, nil)
	s.Equal(http.StatusOK, status)
	data := dataOf(envelope)
	s.Equal(float64(s.ownerID), data["id"])
	s.NotContains(data, "passwordHash")
}
