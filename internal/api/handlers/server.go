// Package handlers implements the HTTP handlers for the Q&A backend.
//
// The public surface keeps the loose contract the site's widget already
// speaks: the submit endpoint always answers 200 with a success flag. The
// admin surface is a normal JSON API with real status codes.
package handlers

import (
	"mortisplay.ru/qa/internal/api/middleware"
	"mortisplay.ru/qa/internal/service"
	"mortisplay.ru/qa/internal/store"
)

// Server holds all handler dependencies.
type Server struct {
	submissions *service.SubmissionService
	moderation  *service.ModerationService
	store       store.Store
	jwtCfg      middleware.JWTConfig

	adminUser         string
	adminPasswordHash string
}

// ServerDeps holds all dependencies for creating a Server. Manual DI.
type ServerDeps struct {
	Submissions *service.SubmissionService
	Moderation  *service.ModerationService
	Store       store.Store
	JWTCfg      middleware.JWTConfig

	AdminUser         string
	AdminPasswordHash string
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		submissions:       deps.Submissions,
		moderation:        deps.Moderation,
		store:             deps.Store,
		jwtCfg:            deps.JWTCfg,
		adminUser:         deps.AdminUser,
		adminPasswordHash: deps.AdminPasswordHash,
	}
}
