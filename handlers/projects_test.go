package handlers

import (
	"fmt"
	"net/http"
	"strconv"
)

func (s *E2ETestSuite) Test20_CreateProject() {
	status, envelope := s.do("POST", "/projects", s.ownerToken, map[string]interface{}{
		"workspaceId": s.workspaceID,
		"name":        "Platform",
		"description": "Core platform work",
	})
	s.Equal(http.StatusCreated, status)
	s.projectID = idOf(envelope)
	s.True(s.projectID > 0)

	data := dataOf(envelope)
	s.Equal("ACTIVE", data["status"])
	s.Equal(float64(s.ownerID), data["teamLead"])
}

func (s *E2ETestSuite) Test21_ListProjectsByWorkspace() {
	status, envelope := s.do("GET", "/projects?workspaceId="+strconv.Itoa(s.workspaceID), s.ownerToken, nil)
	s.Equal(http.StatusOK, status)
	list, ok := envelope["data"].([]interface{})
	s.True(ok)
	s.True(len(list) >= 1)
}

func (s *E2ETestSuite) Test22_MemberCannotUpdateProject() {
	status, _ := s.do("PATCH", "/projects/"+strconv.Itoa(s.projectID), s.guestToken, map[string]string{
		"name": "Hijacked",
	})
	s.Equal(http.StatusForbidden, status)
}

func (s *E2ETestSuite) Test23_TeamLeadUpdatesProject() {
	status, envelope := s.do("PATCH", "/projects/"+strconv.Itoa(s.projectID), s.ownerToken, map[string]string{
		"status": "ON_HOLD",
	})
	s.Equal(http.StatusOK, status)
	s.Equal("ON_HOLD", dataOf(envelope)["status"])

	status, _ = s.do("PATCH", "/projects/"+strconv.Itoa(s.projectID), s.ownerToken, map[string]string{
		"status": "ACTIVE",
	})
	s.Equal(http.StatusOK, status)
}

func (s *E2ETestSuite) Test24_AddProjectMember() {
	status, _ := s.do("POST", fmt.Sprintf("/projects/%d/members", s.projectID), s.ownerToken, map[string]int{
		"userId": s.guestID,
	})
	s.Equal(http.StatusCreated, status)

	status, _ = s.do("POST", fmt.Sprintf("/projects/%d/members", s.projectID), s.ownerToken, map[string]int{
		"userId": s.guestID,
	})
	s.Equal(http.StatusConflict, status)
}

func (s *E2ETestSuite) Test25_ListProjectMembers() {
	status, envelope := s.do("GET", fmt.Sprintf("/projects/%d/members", s.projectID), s.ownerToken, nil)
	s.Equal(http.StatusOK, status)
	list, ok := envelope["data"].([]interface{})
	s.True(ok)
	s.True(len(list) >= 1)
}

func (s *E2ETestSuite) Test26_OnlyLeadRemovesMembers() {
	status, _ := s.do("DELETE", fmt.Sprintf("/projects/%d/members/%d", s.projectID, s.ownerID), s.guestToken, nil)
	s.Equal(http.StatusForbidden, status)

	// The lead cannot be removed, even by the lead.
	status, _ = s.do("DELETE", fmt.Sprintf("/projects/%d/members/%d", s.projectID, s.ownerID), s.ownerToken, nil)
	s.Equal(http.StatusForbidden, status)
}
