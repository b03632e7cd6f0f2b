package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/vnkhanh/e-cert-backend/models"
	"github.com/vnkhanh/e-cert-backend/storage"
)

// runStoreSuite checks the behaviour both backends must share.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("users", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		uni := &models.User{Username: "alice", Email: "alice@st.niituniversity.in", Password: "h", Role: models.RoleUniversity}
		require.NoError(t, s.CreateUser(ctx, uni))
		stu := &models.User{Username: "bob", Email: "bob@x.com", Password: "h", Role: models.RoleStudent, Verified: true}
		require.NoError(t, s.CreateUser(ctx, stu))
		stu2 := &models.User{Username: "carl", Email: "carl@x.com", Password: "h", Role: models.RoleStudent, Verified: true}
		require.NoError(t, s.CreateUser(ctx, stu2))

		assert.Equal(t, 1, uni.ID)
		assert.Equal(t, 1, stu.ID, "ids are allocated per role")
		assert.Equal(t, 2, stu2.ID)

		got, err := s.FindUserByEmail(ctx, "bob@x.com")
		require.NoError(t, err)
		assert.Equal(t, models.RoleStudent, got.Role)

		got, err = s.FindUserByID(ctx, 1, models.RoleUniversity)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
		assert.False(t, got.Verified)

		_, err = s.FindUserByID(ctx, 2, models.RoleUniversity)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = s.FindUserByEmail(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		got.Verified = true
		require.NoError(t, s.UpdateUser(ctx, got))
		got, err = s.FindUserByID(ctx, 1, models.RoleUniversity)
		require.NoError(t, err)
		assert.True(t, got.Verified)

		missing := &models.User{ID: 99, Role: models.RoleEmployer}
		assert.ErrorIs(t, s.UpdateUser(ctx, missing), storage.ErrNotFound)

		students, err := s.ListUsers(ctx, models.RoleStudent)
		require.NoError(t, err)
		assert.Len(t, students, 2)
	})

	t.Run("students", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		a := &models.StudentRecord{Data: models.NewRowData("name", "Bob", "email", "bob@x.com"), UploadedBy: "u1"}
		b := &models.StudentRecord{Data: models.NewRowData("name", "Ann", "email", "ann@x.com"), UploadedBy: "u2"}
		c := &models.StudentRecord{Data: models.NewRowData("name", "Eve"), UploadedBy: "u1"}
		for _, rec := range []*models.StudentRecord{a, b, c} {
			require.NoError(t, s.InsertStudent(ctx, rec))
		}
		assert.Equal(t, []int{1, 2, 3}, []int{a.ID, b.ID, c.ID})

		got, err := s.FindStudent(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"name", "email"}, got.Data.Keys(), "column order survives storage")

		created := got.CreatedAt
		got.Data.Set("degree", "BSc")
		require.NoError(t, s.UpdateStudent(ctx, got))
		got, err = s.FindStudent(ctx, 1)
		require.NoError(t, err)
		v, _ := got.Data.Get("degree")
		assert.Equal(t, "BSc", v)
		assert.WithinDuration(t, created, got.CreatedAt, time.Second)

		assert.ErrorIs(t, s.UpdateStudent(ctx, &models.StudentRecord{ID: 42}), storage.ErrNotFound)

		ids, err := s.DeleteStudentsByUploader(ctx, "u1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []int{1, 3}, ids)

		all, err := s.ListStudents(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, 2, all[0].ID)

		next := &models.StudentRecord{Data: models.NewRowData("name", "Zed"), UploadedBy: "u2"}
		require.NoError(t, s.InsertStudent(ctx, next))
		assert.Equal(t, 3, next.ID, "max+1 reuses freed ids above the current max")
	})

	t.Run("proofs", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

		_, err := s.LatestProof(ctx, 1)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		require.NoError(t, s.AppendProof(ctx, &models.Proof{StudentID: 1, Hash: "a", Timestamp: base}))
		require.NoError(t, s.AppendProof(ctx, &models.Proof{StudentID: 1, Hash: "b", Timestamp: base.Add(time.Second)}))
		require.NoError(t, s.AppendProof(ctx, &models.Proof{StudentID: 1, Hash: "c", Timestamp: base}))
		require.NoError(t, s.AppendProof(ctx, &models.Proof{StudentID: 2, Hash: "d", Timestamp: base.Add(time.Hour)}))

		latest, err := s.LatestProof(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "b", latest.Hash)

		n, err := s.DeleteProofsForStudents(ctx, []int{1})
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		n, err = s.DeleteProofsForStudents(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, n)

		latest, err = s.LatestProof(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "d", latest.Hash)
	})

	t.Run("certificates", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		to := "bob@x.com"

		require.NoError(t, s.SaveCertificate(ctx, &models.Certificate{CertID: 1, StudentID: 1, File: "certs/cert_1.html", IssuedBy: "u1", GeneratedAt: time.Now().UTC()}))
		require.NoError(t, s.SaveCertificate(ctx, &models.Certificate{CertID: 2, StudentID: 2, File: "certs/cert_2.html", IssuedBy: "u2", GeneratedAt: time.Now().UTC()}))
		require.NoError(t, s.SaveCertificate(ctx, &models.Certificate{CertID: 1, StudentID: 1, File: "certs/cert_1b.html", IssuedBy: "u1", EmailedTo: &to, GeneratedAt: time.Now().UTC()}))

		all, err := s.ListCertificates(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		got, err := s.FindCertificate(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "certs/cert_1b.html", got.File)
		require.NotNil(t, got.EmailedTo)
		assert.Equal(t, to, *got.EmailedTo)

		_, err = s.FindCertificate(ctx, 7)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		n, err := s.DeleteCertificatesByIssuer(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		_, err = s.FindCertificate(ctx, 1)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("templates", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		tpl := &models.Template{
			ID:         "11111111-1111-1111-1111-111111111111",
			Filename:   "template_1.png",
			Layout:     datatypes.JSONMap{"font": "serif"},
			UploadedBy: "u1",
			UploadedAt: time.Now().UTC(),
		}
		require.NoError(t, s.SaveTemplate(ctx, tpl))
		require.NoError(t, s.SaveTemplate(ctx, &models.Template{ID: "22222222-2222-2222-2222-222222222222", Filename: "t2.png", UploadedBy: "u2", UploadedAt: time.Now().UTC()}))

		mine, err := s.ListTemplates(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, tpl.ID, mine[0].ID)

		got, err := s.FindTemplate(ctx, tpl.ID)
		require.NoError(t, err)
		assert.Equal(t, "serif", got.Layout["font"])

		_, err = s.FindTemplate(ctx, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("verifications", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		now := time.Now().UTC()

		_, err := s.FindVerification(ctx, "a@uni.edu")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		require.NoError(t, s.SaveVerification(ctx, &models.VerificationCode{Email: "a@uni.edu", Code: "123456", IssuedAt: now.Add(-time.Hour), Status: models.VerificationPending}))
		require.NoError(t, s.SaveVerification(ctx, &models.VerificationCode{Email: "b@uni.edu", Code: "654321", IssuedAt: now.Add(-time.Hour), Status: models.VerificationConfirmed, ConfirmedAt: &now}))
		require.NoError(t, s.SaveVerification(ctx, &models.VerificationCode{Email: "c@uni.edu", Code: "000111", IssuedAt: now, Status: models.VerificationPending}))

		got, err := s.FindVerification(ctx, "a@uni.edu")
		require.NoError(t, err)
		assert.Equal(t, "123456", got.Code)
		assert.False(t, got.Confirmed())

		got.Code = "999999"
		require.NoError(t, s.SaveVerification(ctx, got))
		got, err = s.FindVerification(ctx, "a@uni.edu")
		require.NoError(t, err)
		assert.Equal(t, "999999", got.Code)

		n, err := s.DeleteExpiredVerifications(ctx, now.Add(-time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n, "only stale pending codes are removed")

		_, err = s.FindVerification(ctx, "b@uni.edu")
		assert.NoError(t, err)
		_, err = s.FindVerification(ctx, "c@uni.edu")
		assert.NoError(t, err)
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(context.Background()))
	})
}
