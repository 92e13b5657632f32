package router

import (
	"net/http"

	"github.com/patric-chuzhbe/thesiscomments/internal/apperr"
	"github.com/patric-chuzhbe/thesiscomments/internal/auth"
	"github.com/patric-chuzhbe/thesiscomments/internal/models"
	"github.com/patric-chuzhbe/thesiscomments/internal/validation"
)

// GetHealth reports liveness with the server time.
func (myRouter *Router) GetHealth(response http.ResponseWriter, request *http.Request) {
	writeJSON(response, http.StatusOK, models.HealthResponse{
		OK: true,
		TS: models.FormatTimestamp(myRouter.now()),
	})
}

// PostUsers registers a username, or logs an existing one in, and returns a token.
func (myRouter *Router) PostUsers(response http.ResponseWriter, request *http.Request) {
	body, err := readJSONObject(response, request, apperr.ErrInvalidUsername)
	if err != nil {
		writeError(response, request, err)
		return
	}

	username, token, err := myRouter.service.CreateUser(request.Context(), body.String("username"))
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, models.CreateUserResponse{Username: username, Token: token})
}

// GetUser reports whether a username is registered.
func (myRouter *Router) GetUser(response http.ResponseWriter, request *http.Request) {
	username, exists, err := myRouter.service.UserExists(request.Context(), pathParam(request, "username"))
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, models.UserExistsResponse{Username: username, Exists: exists})
}

// GetMe echoes the identity carried by the bearer token.
func (myRouter *Router) GetMe(response http.ResponseWriter, request *http.Request) {
	username, ok := auth.UsernameFromContext(request.Context())
	if !ok {
		writeError(response, request, apperr.ErrMissingToken)
		return
	}

	writeJSON(response, http.StatusOK, models.MeResponse{Username: username})
}

// GetThreadComments lists a thread across all users.
func (myRouter *Router) GetThreadComments(response http.ResponseWriter, request *http.Request) {
	listing, err := myRouter.service.ListComments(request.Context(), pathParam(request, "threadId"))
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, listing)
}

// PostThreadComments adds a comment by the caller to a thread.
func (myRouter *Router) PostThreadComments(response http.ResponseWriter, request *http.Request) {
	username, ok := auth.UsernameFromContext(request.Context())
	if !ok {
		writeError(response, request, apperr.ErrMissingToken)
		return
	}

	threadID := pathParam(request, "threadId")
	if err := validation.ThreadID(threadID); err != nil {
		writeError(response, request, err)
		return
	}

	body, err := readJSONObject(response, request, apperr.ErrTextTooLong)
	if err != nil {
		writeError(response, request, err)
		return
	}

	comment, err := myRouter.service.PostComment(request.Context(), username, threadID, body.String("text"))
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, models.PostCommentResponse{OK: true, Comment: comment})
}

// DeleteThreadComment removes one of the caller's comments.
func (myRouter *Router) DeleteThreadComment(response http.ResponseWriter, request *http.Request) {
	username, ok := auth.UsernameFromContext(request.Context())
	if !ok {
		writeError(response, request, apperr.ErrMissingToken)
		return
	}

	deleted, err := myRouter.service.DeleteComment(
		request.Context(),
		username,
		pathParam(request, "threadId"),
		pathParam(request, "commentId"),
	)
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, models.DeleteCommentResponse{OK: true, Deleted: deleted})
}
