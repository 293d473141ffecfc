package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	api "github.com/courseforge/lms/internal/api/http"
	auth "github.com/courseforge/lms/internal/auth/middleware"
	"github.com/courseforge/lms/internal/config"
	"github.com/courseforge/lms/internal/db"
	"github.com/courseforge/lms/internal/rbac"
	"github.com/courseforge/lms/internal/scorm"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	store := scorm.NewSQLStore(dbh, cfg.DBDriver)
	svc := scorm.NewService(store, logger)

	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, auth.LoginOptions{
			AdminUser:     cfg.AdminUser,
			AdminPassHash: cfg.AdminPassHash,
		}))
	}

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.Route("/scorm", func(sr chi.Router) {
			// RTE protocol surface, called by the content player
			sr.With(rbac.Require("rte:call")).
				Post("/initialize/{scoID}", api.InitializeHandler(svc))
			sr.With(rbac.Require("rte:call")).
				Post("/get-value/{attemptID}", api.GetValueHandler(svc))
			sr.With(rbac.Require("rte:call")).
				Post("/set-value/{attemptID}", api.SetValueHandler(svc))
			sr.With(rbac.Require("rte:call")).
				Post("/commit/{attemptID}", api.CommitHandler(svc))
			sr.With(rbac.Require("rte:call")).
				Post("/finish/{attemptID}", api.FinishHandler(svc))
			sr.With(rbac.Require("rte:call")).
				Get("/get-last-error/{attemptID}", api.GetLastErrorHandler(svc))

			// Read-side listings
			sr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
				Get("/sco/{scoID}/attempts", api.ListSCOAttemptsHandler(svc))
			sr.With(rbac.Require("progress:view-own")).
				Get("/course/{courseID}/progress", api.CourseProgressHandler(svc))

			// Authoring (teacher/admin)
			sr.With(rbac.Require("sco:create")).
				Post("/courses", api.CreateCourseHandler(store))
			sr.With(rbac.Require("sco:create")).
				Post("/courses/{courseID}/scos", api.CreateSCOHandler(store))
			sr.With(rbac.Require("sco:view")).
				Get("/courses/{courseID}/scos", api.ListCourseSCOsHandler(store))
			sr.With(rbac.Require("sco:create")).
				Post("/courses/{courseID}/enrollments", api.EnrollHandler(store))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	logger.Info("listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("mode", string(cfg.Mode)),
		zap.String("db", cfg.DBDriver))
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
