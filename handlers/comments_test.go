package handlers

import (
	"net/http"
	"strconv"
)

func (s *E2ETestSuite) Test40_CreateComment() {
	status, envelope := s.do("POST", "/comments", s.guestToken, map[string]interface{}{
		"taskId":  s.taskID,
		"content": "Looks good, shipping this today.",
	})
	s.Equal(http.StatusCreated, status)
	s.commentID = idOf(envelope)
	s.True(s.commentID > 0)

	data := dataOf(envelope)
	user, _ := data["user"].(map[string]interface{})
	s.NotNil(user)
	s.Equal(float64(s.guestID), user["id"])
}

func (s *E2ETestSuite) Test41_ListComments() {
	status, envelope := s.do("GET", "/comments?taskId="+strconv.Itoa(s.taskID), s.ownerToken, nil)
	s.Equal(http.StatusOK, status)
	list, ok := envelope["data"].([]interface{})
	s.True(ok)
	s.True(len(list) >= 1)
}

func (s *E2ETestSuite) Test42_OnlyAuthorEditsComment() {
	status, _ := s.do("PATCH", "/comments/"+strconv.Itoa(s.commentID), s.ownerToken, map[string]string{
		"content": "Rewritten by someone else",
	})
	s.Equal(http.StatusForbidden, status)

	status, envelope := s.do("PATCH", "/comments/"+strconv.Itoa(s.commentID), s.guestToken, map[string]string{
		"content": "Edited: shipping tomorrow instead.",
	})
	s.Equal(http.StatusOK, status)
	s.Equal("Edited: shipping tomorrow instead.", dataOf(envelope)["content"])
}

func (s *E2ETestSuite) Test43_OnlyAuthorDeletesComment() {
	status, _ := s.do("DELETE", "/comments/"+strconv.Itoa(s.commentID), s.ownerToken, nil)
	s.Equal(http.StatusForbidden, status)

	status, _ = s.do("DELETE", "/comments/"+strconv.Itoa(s.commentID), s.guestToken, nil)
	s.Equal(http.StatusOK, status)

	status, _ = s.do("DELETE", "/comments/"+strconv.Itoa(s.commentID), s.guestToken, nil)
	s.Equal(http.StatusNotFound, status)
}
