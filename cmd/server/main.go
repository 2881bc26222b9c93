package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	api "github.com/quizcraft/quizcraft-server/internal/api/http"
	"github.com/quizcraft/quizcraft-server/internal/audit"
	"github.com/quizcraft/quizcraft-server/internal/auth"
	authmw "github.com/quizcraft/quizcraft-server/internal/auth/middleware"
	"github.com/quizcraft/quizcraft-server/internal/config"
	"github.com/quizcraft/quizcraft-server/internal/db"
	"github.com/quizcraft/quizcraft-server/internal/quiz"
	"github.com/quizcraft/quizcraft-server/internal/rbac"
	"github.com/quizcraft/quizcraft-server/internal/storage"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := quiz.NewSQLStore(dbh)
	events := audit.NewLog(dbh)
	take := quiz.NewTakeService(store, events)
	validate := validator.New()

	authSvc := authmw.NewAuthService(cfg.AuthHMACSecret)

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", authmw.LoginHandler(authSvc, dbh))
	r.Post("/auth/register", authmw.RegisterHandler(authSvc, dbh))
	if cfg.EnableGuestAuth {
		r.Post("/auth/guest", auth.GuestLoginHandler(authSvc, dbh, cfg))
	}

	// Assets (protected; upload is owner-checked inside)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(authSvc))
		pr.Route("/assets", func(ar chi.Router) {
			api.MountAssets(ar, bs, store)
		})
	})

	// Protected API (JWT -> role in context -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(authSvc))

		// Authoring
		pr.With(rbac.Require("quiz:create")).
			Post("/quizzes", api.CreateQuizHandler(store, validate))
		pr.With(rbac.Require("quiz:browse")).
			Get("/quizzes", api.ListQuizzesHandler(store))
		pr.With(rbac.Require("quiz:browse")).
			Get("/quizzes/{quizID}", api.GetQuizHandler(store))
		pr.With(rbac.Require("quiz:edit-own")).
			Put("/quizzes/{quizID}", api.UpdateQuizHandler(store, validate))
		pr.With(rbac.Require("quiz:delete-own")).
			Delete("/quizzes/{quizID}", api.DeleteQuizHandler(store))
		pr.With(rbac.Require("quiz:publish")).
			Post("/quizzes/{quizID}/publish", api.SetPublishedHandler(store, true))
		pr.With(rbac.Require("quiz:publish")).
			Post("/quizzes/{quizID}/unpublish", api.SetPublishedHandler(store, false))
		pr.With(rbac.Require("quiz:stats")).
			Get("/quizzes/{quizID}/stats", api.QuizStatsHandler(store))

		// Questions
		pr.With(rbac.Require("question:edit")).
			Post("/quizzes/{quizID}/questions", api.CreateQuestionHandler(store, validate))
		pr.With(rbac.Require("question:edit")).
			Get("/quizzes/{quizID}/questions", api.ListQuestionsHandler(store))
		pr.With(rbac.Require("question:edit")).
			Put("/quizzes/{quizID}/questions/{questionID}", api.UpdateQuestionHandler(store, validate))
		pr.With(rbac.Require("question:edit")).
			Delete("/quizzes/{quizID}/questions/{questionID}", api.DeleteQuestionHandler(store))

		// Custom intake fields
		pr.With(rbac.Require("question:edit")).
			Post("/quizzes/{quizID}/fields", api.CreateCustomFieldHandler(store, validate))
		pr.With(rbac.Require("question:edit")).
			Delete("/quizzes/{quizID}/fields/{fieldID}", api.DeleteCustomFieldHandler(store))
		pr.With(rbac.Require("quiz:browse")).
			Get("/quizzes/{quizID}/fields", api.ListCustomFieldsHandler(store))

		// Taking flow
		pr.With(rbac.Require("attempt:create")).
			Post("/attempts", api.StartAttemptHandler(take))
		pr.With(rbac.Require("attempt:take")).
			Post("/attempts/{attemptID}/password", api.QuizPasswordHandler(take))
		pr.With(rbac.Require("attempt:take")).
			Get("/attempts/{attemptID}/fields", api.IntakeFieldsHandler(take))
		pr.With(rbac.Require("attempt:take")).
			Post("/attempts/{attemptID}/fields", api.SubmitFieldsHandler(take))
		pr.With(rbac.Require("attempt:take")).
			Get("/attempts/{attemptID}/current", api.CurrentQuestionHandler(take))
		pr.With(rbac.Require("attempt:take")).
			Post("/attempts/{attemptID}/answer", api.SaveAnswerHandler(take))
		pr.With(rbac.Require("attempt:take")).
			Post("/attempts/{attemptID}/next", api.NextQuestionHandler(take))
		pr.With(rbac.Require("attempt:take")).
			Post("/attempts/{attemptID}/prev", api.PrevQuestionHandler(take))
		pr.With(rbac.Require("attempt:take")).
			Post("/attempts/{attemptID}/finish", api.FinishAttemptHandler(take))
		pr.With(rbac.Require("attempt:take")).
			Delete("/attempts/{attemptID}", api.AbandonAttemptHandler(take))

		// Roster management
		pr.With(rbac.Require("users:import")).
			Post("/users/bulk", api.BulkUpsertUsersHandler(dbh))
		pr.With(rbac.Require("users:list")).
			Get("/users", api.ListUsersHandler(dbh))
		pr.Post("/users/change-password", api.ChangePasswordHandler(dbh))

		// Review and grading
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", api.ListAttemptsHandler(store))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}/answers", api.ListAnswersHandler(store))
		pr.With(rbac.Require("attempt:grade")).
			Get("/attempts/{attemptID}/grading", api.GetPendingGradingHandler(store))
		pr.With(rbac.Require("attempt:grade")).
			Post("/attempts/{attemptID}/grading", api.RecordGradeHandler(store))
		pr.With(rbac.Require("attempt:grade")).
			Post("/attempts/{attemptID}/grading/finalize", api.FinalizeGradingHandler(store))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
