// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/lodgepost/lodgepost/internal/auth"
	authpg "github.com/lodgepost/lodgepost/internal/auth/postgres"
	"github.com/lodgepost/lodgepost/internal/store"
)

// setupPostgresContainer starts a PostgreSQL container, applies all
// migrations, and connects a pool.
func setupPostgresContainer() (*pgxpool.Pool, func(), error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("lodgepost_test"),
		postgres.WithUsername("lodgepost"),
		postgres.WithPassword("lodgepost"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		return nil, nil, err
	}
	if err := migrator.Up(); err != nil {
		return nil, nil, err
	}
	_ = migrator.Close()

	pool, err := store.Connect(ctx, connStr)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}

	return pool, cleanup, nil
}

var _ = Describe("Postgres repositories", func() {
	var pool *pgxpool.Pool
	var cleanup func()
	var owners *authpg.OwnerRepository
	var sessions *authpg.SessionRepository

	BeforeEach(func() {
		var err error
		pool, cleanup, err = setupPostgresContainer()
		Expect(err).NotTo(HaveOccurred())
		owners = authpg.NewOwnerRepository(pool)
		sessions = authpg.NewSessionRepository(pool)
	})

	AfterEach(func() {
		cleanup()
	})

	newOwner := func(email string) *auth.Owner {
		owner, err := auth.NewOwner(email, "Test Owner", "$argon2id$fake", auth.RoleOwner, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		return owner
	}

	Describe("OwnerRepository", func() {
		It("creates and fetches owners by ID and email", func() {
			ctx := context.Background()
			owner := newOwner("maria@example.com")

			Expect(owners.Create(ctx, owner)).To(Succeed())

			byID, err := owners.GetByID(ctx, owner.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(byID.Email).To(Equal("maria@example.com"))

			byEmail, err := owners.GetByEmail(ctx, "MARIA@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(byEmail.ID).To(Equal(owner.ID))
		})

		It("rejects duplicate emails case-insensitively", func() {
			ctx := context.Background()
			Expect(owners.Create(ctx, newOwner("dup@example.com"))).To(Succeed())

			err := owners.Create(ctx, newOwner("DUP@example.com"))
			Expect(err).To(MatchError(auth.ErrDuplicateEmail))
		})

		It("updates the password hash", func() {
			ctx := context.Background()
			owner := newOwner("rehash@example.com")
			Expect(owners.Create(ctx, owner)).To(Succeed())

			Expect(owners.UpdatePassword(ctx, owner.ID, "$argon2id$new")).To(Succeed())

			got, err := owners.GetByID(ctx, owner.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.PasswordHash).To(Equal("$argon2id$new"))
		})

		It("deactivates and reactivates owners", func() {
			ctx := context.Background()
			owner := newOwner("toggle@example.com")
			Expect(owners.Create(ctx, owner)).To(Succeed())

			Expect(owners.SetActive(ctx, owner.ID, false)).To(Succeed())
			got, err := owners.GetByID(ctx, owner.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.IsActive).To(BeFalse())

			Expect(owners.SetActive(ctx, owner.ID, true)).To(Succeed())
			got, err = owners.GetByID(ctx, owner.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.IsActive).To(BeTrue())
		})
	})

	Describe("SessionRepository", func() {
		var owner *auth.Owner

		BeforeEach(func() {
			owner = newOwner("sessions@example.com")
			Expect(owners.Create(context.Background(), owner)).To(Succeed())
		})

		newSession := func() *auth.OwnerSession {
			_, hash, err := auth.GenerateRefreshToken()
			Expect(err).NotTo(HaveOccurred())
			return auth.NewOwnerSession(owner.ID, hash, "ginkgo", "127.0.0.1",
				time.Now().Add(time.Hour))
		}

		It("creates sessions and finds them by refresh hash", func() {
			ctx := context.Background()
			session := newSession()
			Expect(sessions.Create(ctx, session)).To(Succeed())

			got, err := sessions.GetByRefreshTokenHash(ctx, session.RefreshTokenHash)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(session.ID))
			Expect(got.OwnerID).To(Equal(owner.ID))
		})

		It("rotates the refresh hash exactly once per old hash", func() {
			ctx := context.Background()
			session := newSession()
			Expect(sessions.Create(ctx, session)).To(Succeed())

			_, newHash, err := auth.GenerateRefreshToken()
			Expect(err).NotTo(HaveOccurred())

			oldHash := session.RefreshTokenHash
			now := time.Now()
			Expect(sessions.RotateRefreshHash(ctx, session.ID, oldHash, newHash, now)).To(Succeed())

			// Replaying the old hash must miss the compare-and-set.
			_, replayHash, err := auth.GenerateRefreshToken()
			Expect(err).NotTo(HaveOccurred())
			err = sessions.RotateRefreshHash(ctx, session.ID, oldHash, replayHash, now)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("revokes a session once and preserves the original revocation time", func() {
			ctx := context.Background()
			session := newSession()
			Expect(sessions.Create(ctx, session)).To(Succeed())

			now := time.Now()
			Expect(sessions.Revoke(ctx, session.ID, now)).To(Succeed())

			err := sessions.Revoke(ctx, session.ID, now.Add(time.Minute))
			Expect(err).To(MatchError(auth.ErrNotFound))

			got, err := sessions.GetByID(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.RevokedAt).NotTo(BeNil())
		})

		It("revokes every session for an owner", func() {
			ctx := context.Background()
			for range 3 {
				Expect(sessions.Create(ctx, newSession())).To(Succeed())
			}

			n, err := sessions.RevokeByOwner(ctx, owner.ID, time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(3)))
		})

		It("deletes only expired sessions", func() {
			ctx := context.Background()
			live := newSession()
			Expect(sessions.Create(ctx, live)).To(Succeed())

			_, hash, err := auth.GenerateRefreshToken()
			Expect(err).NotTo(HaveOccurred())
			expired := auth.NewOwnerSession(owner.ID, hash, "ginkgo", "127.0.0.1",
				time.Now().Add(-time.Hour))
			Expect(sessions.Create(ctx, expired)).To(Succeed())

			n, err := sessions.DeleteExpired(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))

			_, err = sessions.GetByID(ctx, live.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = sessions.GetByID(ctx, expired.ID)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("lists sessions newest first", func() {
			ctx := context.Background()
			first := newSession()
			Expect(sessions.Create(ctx, first)).To(Succeed())
			time.Sleep(10 * time.Millisecond)
			second := newSession()
			Expect(sessions.Create(ctx, second)).To(Succeed())

			list, err := sessions.GetByOwner(ctx, owner.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))
			Expect(list[0].ID).To(Equal(second.ID))
		})
	})
})
