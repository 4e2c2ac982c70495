package handlers

import (
	"net/http"
	"strconv"
)

func (s *E2ETestSuite) Test30_CreateTask() {
	status, envelope := s.do("POST", "/tasks", s.ownerToken, map[string]interface{}{
		"projectId": s.projectID,
		"title":     "Write the changelog",
	})
	s.Equal(http.StatusCreated, status)
	s.taskID = idOf(envelope)
	s.True(s.taskID > 0)

	data := dataOf(envelope)
	s.Equal("TODO", data["status"])
	s.Equal("MEDIUM", data["priority"])
}

func (s *E2ETestSuite) Test31_TasksRequireProjectFilter() {
	status, _ := s.do("GET", "/tasks", s.ownerToken, nil)
	s.Equal(http.StatusBadRequest, status)

	status, envelope := s.do("GET", "/tasks?projectId="+strconv.Itoa(s.projectID), s.ownerToken, nil)
	s.Equal(http.StatusOK, status)
	list, ok := envelope["data"].([]interface{})
	s.True(ok)
	s.True(len(list) >= 1)
}

func (s *E2ETestSuite) Test32_AssignAndProgressTask() {
	status, envelope := s.do("PATCH", "/tasks/"+strconv.Itoa(s.taskID), s.ownerToken, map[string]interface{}{
		"assigneeId": s.guestID,
		"status":     "IN_PROGRESS",
	})
	s.Equal(http.StatusOK, status)
	data := dataOf(envelope)
	s.Equal("IN_PROGRESS", data["status"])
	assignee, _ := data["assignee"].(map[string]interface{})
	s.NotNil(assignee)
	s.Equal(float64(s.guestID), assignee["id"])
}

func (s *E2ETestSuite) Test33_WorkspaceMemberReadsTask() {
	status, envelope := s.do("GET", "/tasks/"+strconv.Itoa(s.taskID), s.guestToken, nil)
	s.Equal(http.StatusOK, status)
	s.Equal(float64(s.taskID), dataOf(envelope)["id"])
}

func (s *E2ETestSuite) Test34_UnknownTaskIsNotFound() {
	status, _ := s.do("GET", "/tasks/999999", s.ownerToken, nil)
	s.Equal(http.StatusNotFound, status)
}
