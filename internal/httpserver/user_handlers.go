package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dchat/internal/service"
)

// @Summary      List users
// @Description  All users except the caller
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /users [get]
func handleListUsers(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		users, err := userSvc.ListOthers(r.Context(), currentUser.Username)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "users": users})
	}
}

// @Summary      Online status
// @Description  Persisted presence flag and last-seen time for a username
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        username path string true "Username"
// @Success      200  {object}  service.OnlineStatus
// @Failure      404  {object}  map[string]string
// @Router       /users/status/{username} [get]
func handleUserStatus(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		status, err := userSvc.Status(r.Context(), username)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

// @Summary      Find user
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        username path string true "Username"
// @Success      200  {object}  domain.User
// @Failure      404  {object}  map[string]string
// @Router       /users/find/{username} [get]
func handleFindUser(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		user, err := userSvc.GetByUsername(r.Context(), username)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

type updateProfileRequest struct {
	Bio        *string `json:"bio" validate:"omitempty,max=150"`
	ProfilePic *string `json:"profile_pic"`
}

// @Summary      Update profile
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body updateProfileRequest true "Profile fields"
// @Success      200  {object}  domain.User
// @Failure      400  {object}  map[string]string
// @Router       /users/profile [put]
func handleUpdateProfile(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req updateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := userSvc.UpdateProfile(r.Context(), currentUser, req.Bio, req.ProfilePic); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, currentUser)
	}
}
