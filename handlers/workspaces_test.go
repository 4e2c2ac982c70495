package handlers

import (
	"fmt"
	"net/http"
	"strconv"
)

func (s *E2ETestSuite) Test10_CreateWorkspace() {
	status, envelope := s.do("POST", "/workspaces", s.ownerToken, map[string]string{
		"name":        "E2E Workspace",
		"slug":        s.slug,
		"description": "Created by the test suite",
	})
	s.Equal(http.StatusCreated, status)
	s.workspaceID = idOf(envelope)
	s.True(s.workspaceID > 0)

	data := dataOf(envelope)
	s.Equal(s.slug, data["slug"])
}

func (s *E2ETestSuite) Test11_DuplicateSlugRejected() {
	status, envelope := s.do("POST", "/workspaces", s.ownerToken, map[string]string{
		"name": "Copycat",
		"slug": s.slug,
	})
	s.Equal(http.StatusConflict, status)
	s.Equal(false, envelope["success"])
}

func (s *E2ETestSuite) Test12_GuestCannotSeeWorkspace() {
	status, _ := s.do("GET", "/workspaces/"+strconv.Itoa(s.workspaceID), s.guestToken, nil)
	s.Equal(http.StatusForbidden, status)
}

func (s *E2ETestSuite) Test13_AddGuestAsMember() {
	status, _ := s.do("POST", fmt.Sprintf("/workspaces/%d/members", s.workspaceID), s.ownerToken, map[string]string{
		"email": fmt.Sprintf("guest-%s", s.guestEmailSuffix()),
	})
	s.Equal(http.StatusCreated, status)

	// The new member can now read the workspace.
	status, envelope := s.do("GET", "/workspaces/"+strconv.Itoa(s.workspaceID), s.guestToken, nil)
	s.Equal(http.StatusOK, status)
	s.Equal(float64(s.workspaceID), dataOf(envelope)["id"])
}

func (s *E2ETestSuite) Test14_MemberCannotUpdateWorkspace() {
	name := "Renamed by guest"
	status, _ := s.do("PATCH", "/workspaces/"+strconv.Itoa(s.workspaceID), s.guestToken, map[string]string{
		"name": name,
	})
	s.Equal(http.StatusForbidden, status)
}

func (s *E2ETestSuite) Test15_OwnerUpdatesWorkspace() {
	status, envelope := s.do("PATCH", "/workspaces/"+strconv.Itoa(s.workspaceID), s.ownerToken, map[string]string{
		"name": "E2E Workspace v2",
	})
	s.Equal(http.StatusOK, status)
	s.Equal("E2E Workspace v2", dataOf(envelope)["name"])
}

func (s *E2ETestSuite) Test16_MemberRoleChange() {
	status, _ := s.do("PATCH", fmt.Sprintf("/workspaces/%d/members/%d", s.workspaceID, s.guestID), s.ownerToken, map[string]string{
		"role": "ADMIN",
	})
	s.Equal(http.StatusOK, status)

	status, _ = s.do("PATCH", fmt.Sprintf("/workspaces/%d/members/%d", s.workspaceID, s.guestID), s.ownerToken, map[string]string{
		"role": "INVALID",
	})
	s.Equal(http.StatusBadRequest, status)

	status, _ = s.do("PATCH", fmt.Sprintf("/workspaces/%d/members/%d", s.workspaceID, s.guestID), s.ownerToken, map[string]string{
		"role": "MEMBER",
	})
	s.Equal(http.StatusOK, status)
}

func (s *E2ETestSuite) Test17_OwnerCannotBeRemoved() {
	status, _ := s.do("DELETE", fmt.Sprintf("/workspaces/%d/members/%d", s.workspaceID, s.ownerID), s.ownerToken, nil)
	s.Equal(http.StatusForbidden, status)
}

func (s *E2ETestSuite) Test18_ListWorkspaces() {
	status, envelope := s.do("GET", "/workspaces", s.ownerToken, nil)
	s.Equal(http.StatusOK, status)
	list, ok := envelope["data"].([]interface{})
	s.True(ok)
	found := false
	for _, item := range list {
		ws, _ := item.(map[string]interface{})
		if int(ws["id"].(float64)) == s.workspaceID {
			found = true
			break
		}
	}
	s.True(found)
}

// guestEmailSuffix rebuilds the registered guest address from the slug stamp.
func (s *E2ETestSuite) guestEmailSuffix() string {
	return s.slug[len("e2e-ws-"):] + "@example.com"
}
