package service

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/sice-api/internal/models"
	"github.com/noah-isme/sice-api/internal/repository"
	appErrors "github.com/noah-isme/sice-api/pkg/errors"
	"github.com/noah-isme/sice-api/pkg/jobs"
	"github.com/noah-isme/sice-api/pkg/storage"
)

var (
	adminActor   = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	teacherActor = models.Actor{ID: "teacher-1", Role: models.RoleTeacher}
	otherTeacher = models.Actor{ID: "teacher-2", Role: models.RoleTeacher}
)

func float(v float64) *float64 { return &v }

func str(v string) *string { return &v }

func errCode(err error) string {
	return appErrors.FromError(err).Code
}

type mockUserRepo struct {
	users         map[string]*models.User
	subjectCounts map[string]int
	lastLogin     map[string]time.Time
	lastLoginErr  error
	findErr       error
	deleteErr     error
}

func newMockUserRepo(users ...models.User) *mockUserRepo {
	m := &mockUserRepo{users: map[string]*models.User{}, subjectCounts: map[string]int{}, lastLogin: map[string]time.Time{}}
	for i := range users {
		u := users[i]
		m.users[u.ID] = &u
	}
	return m
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *mockUserRepo) Create(_ context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

// Update mirrors the column-wise write of the SQL repository: only set fields change.
func (m *mockUserRepo) Update(_ context.Context, id string, changes models.UserChanges) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if changes.Role != nil && *changes.Role != u.Role && u.Role == models.RoleTeacher && m.subjectCounts[id] > 0 {
		return nil, repository.ErrStillTeaching
	}
	if changes.Email != nil {
		u.Email = *changes.Email
	}
	if changes.FullName != nil {
		u.FullName = *changes.FullName
	}
	if changes.PasswordHash != nil {
		u.PasswordHash = *changes.PasswordHash
	}
	if changes.Role != nil {
		u.Role = *changes.Role
	}
	if changes.Active != nil {
		u.Active = *changes.Active
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	if m.lastLoginErr != nil {
		return m.lastLoginErr
	}
	m.lastLogin[id] = ts
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = hash
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) (*models.User, error) {
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(m.users, id)
	return u, nil
}

func (m *mockUserRepo) CountSubjects(_ context.Context, userID string) (int, error) {
	return m.subjectCounts[userID], nil
}

type mockStudentRepo struct {
	students map[string]*models.Student
	subjects map[string][]models.SubjectSummary
}

func newMockStudentRepo(students ...models.Student) *mockStudentRepo {
	m := &mockStudentRepo{students: map[string]*models.Student{}, subjects: map[string][]models.SubjectSummary{}}
	for i := range students {
		s := students[i]
		m.students[s.ID] = &s
	}
	return m
}

func (m *mockStudentRepo) sorted() []models.Student {
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockStudentRepo) List(_ context.Context, _ models.StudentFilter) ([]models.Student, int, error) {
	out := m.sorted()
	return out, len(out), nil
}

func (m *mockStudentRepo) FindByID(_ context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByEmail(_ context.Context, email string) (*models.Student, error) {
	for _, s := range m.students {
		if strings.EqualFold(s.Email, email) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) matches(s models.Student, term string) bool {
	if strings.EqualFold(s.Email, term) {
		return true
	}
	term = strings.ToLower(term)
	names := []string{s.FirstName, s.LastName}
	if s.SecondLastName != nil {
		names = append(names, *s.SecondLastName)
	}
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), term) {
			return true
		}
	}
	return false
}

func (m *mockStudentRepo) Search(ctx context.Context, term string) (*models.Student, error) {
	all, _ := m.SearchAll(ctx, term, 1)
	if len(all) == 0 {
		return nil, sql.ErrNoRows
	}
	return &all[0], nil
}

func (m *mockStudentRepo) SearchAll(_ context.Context, term string, limit int) ([]models.Student, error) {
	out := make([]models.Student, 0)
	for _, s := range m.sorted() {
		if m.matches(s, term) {
			out = append(out, s)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStudentRepo) Create(_ context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	cp := *student
	m.students[student.ID] = &cp
	return nil
}

func (m *mockStudentRepo) Update(_ context.Context, id string, changes models.StudentChanges) (*models.Student, error) {
	s, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if changes.FirstName != nil {
		s.FirstName = *changes.FirstName
	}
	if changes.LastName != nil {
		s.LastName = *changes.LastName
	}
	if changes.SetSecondLastName {
		s.SecondLastName = changes.SecondLastName
	}
	if changes.Email != nil {
		s.Email = *changes.Email
	}
	cp := *s
	return &cp, nil
}

func (m *mockStudentRepo) Delete(_ context.Context, id string) (*models.Student, error) {
	s, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(m.students, id)
	return s, nil
}

func (m *mockStudentRepo) ListSubjects(_ context.Context, studentID string) ([]models.SubjectSummary, error) {
	return m.subjects[studentID], nil
}

type mockSubjectRepo struct {
	subjects  map[string]*models.Subject
	users     *mockUserRepo
	createErr error
}

func newMockSubjectRepo(subjects ...models.Subject) *mockSubjectRepo {
	m := &mockSubjectRepo{subjects: map[string]*models.Subject{}}
	for i := range subjects {
		s := subjects[i]
		m.subjects[s.ID] = &s
	}
	return m
}

func (m *mockSubjectRepo) List(_ context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	out := make([]models.Subject, 0)
	for _, s := range m.subjects {
		if filter.TeacherID != "" && s.TeacherID != filter.TeacherID {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (m *mockSubjectRepo) FindByID(_ context.Context, id string) (*models.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubjectRepo) FindByName(_ context.Context, name string) (*models.Subject, error) {
	for _, s := range m.subjects {
		if strings.EqualFold(s.Name, name) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

// checkTeacher applies the teacher-role rule when the mock is wired to users.
func (m *mockSubjectRepo) checkTeacher(teacherID string) error {
	if m.users == nil {
		return nil
	}
	u, ok := m.users.users[teacherID]
	if !ok {
		return repository.ErrTeacherNotFound
	}
	if u.Role != models.RoleTeacher {
		return repository.ErrNotTeacher
	}
	return nil
}

func (m *mockSubjectRepo) Create(_ context.Context, subject *models.Subject) error {
	if m.createErr != nil {
		return m.createErr
	}
	if err := m.checkTeacher(subject.TeacherID); err != nil {
		return err
	}
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	cp := *subject
	m.subjects[subject.ID] = &cp
	return nil
}

func (m *mockSubjectRepo) Update(_ context.Context, id string, changes models.SubjectChanges) (*models.Subject, error) {
	s, ok := m.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if changes.TeacherID != nil {
		if err := m.checkTeacher(*changes.TeacherID); err != nil {
			return nil, err
		}
		s.TeacherID = *changes.TeacherID
	}
	if changes.Name != nil {
		s.Name = *changes.Name
	}
	cp := *s
	return &cp, nil
}

func (m *mockSubjectRepo) Delete(_ context.Context, id string) (*models.Subject, error) {
	s, ok := m.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(m.subjects, id)
	return s, nil
}

// mockEnrollmentRepo keeps subject id -> set of student ids.
type mockEnrollmentRepo struct {
	enrolled map[string]map[string]bool
	students *mockStudentRepo
}

func newMockEnrollmentRepo(students *mockStudentRepo) *mockEnrollmentRepo {
	return &mockEnrollmentRepo{enrolled: map[string]map[string]bool{}, students: students}
}

func (m *mockEnrollmentRepo) Enroll(_ context.Context, subjectID, studentID string) (bool, error) {
	if m.enrolled[subjectID] == nil {
		m.enrolled[subjectID] = map[string]bool{}
	}
	if m.enrolled[subjectID][studentID] {
		return false, nil
	}
	m.enrolled[subjectID][studentID] = true
	return true, nil
}

func (m *mockEnrollmentRepo) Remove(_ context.Context, subjectID, studentID string) (bool, error) {
	if !m.enrolled[subjectID][studentID] {
		return false, nil
	}
	delete(m.enrolled[subjectID], studentID)
	return true, nil
}

func (m *mockEnrollmentRepo) ListStudents(_ context.Context, subjectID string) ([]models.Student, error) {
	out := make([]models.Student, 0)
	for _, s := range m.students.sorted() {
		if m.enrolled[subjectID][s.ID] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockEnrollmentRepo) Replace(_ context.Context, subjectID string, studentIDs []string) (*models.EnrollmentChange, error) {
	var unknown []string
	want := map[string]bool{}
	for _, id := range studentIDs {
		if _, ok := m.students.students[id]; !ok {
			unknown = append(unknown, id)
			continue
		}
		want[id] = true
	}
	if len(unknown) > 0 {
		return nil, &repository.UnknownStudentsError{IDs: unknown}
	}
	change := &models.EnrollmentChange{Added: []string{}, Removed: []string{}}
	for id := range m.enrolled[subjectID] {
		if !want[id] {
			change.Removed = append(change.Removed, id)
		}
	}
	for id := range want {
		if !m.enrolled[subjectID][id] {
			change.Added = append(change.Added, id)
		}
	}
	sort.Strings(change.Added)
	sort.Strings(change.Removed)
	m.enrolled[subjectID] = want
	return change, nil
}

type mockGradeRepo struct {
	grades   map[string]*models.Grade
	subjects *mockSubjectRepo
	students *mockStudentRepo
}

func newMockGradeRepo(subjects *mockSubjectRepo, students *mockStudentRepo) *mockGradeRepo {
	return &mockGradeRepo{grades: map[string]*models.Grade{}, subjects: subjects, students: students}
}

func (m *mockGradeRepo) Create(_ context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	cp := *grade
	m.grades[grade.ID] = &cp
	return nil
}

func (m *mockGradeRepo) FindByID(_ context.Context, id string) (*models.Grade, error) {
	if g, ok := m.grades[id]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGradeRepo) List(_ context.Context, filter models.GradeFilter) ([]models.Grade, int, error) {
	out := make([]models.Grade, 0)
	for _, g := range m.grades {
		if filter.StudentID != "" && g.StudentID != filter.StudentID {
			continue
		}
		if filter.SubjectID != "" && g.SubjectID != filter.SubjectID {
			continue
		}
		if filter.TeacherID != "" {
			subject, ok := m.subjects.subjects[g.SubjectID]
			if !ok || subject.TeacherID != filter.TeacherID {
				continue
			}
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *mockGradeRepo) UpdateScore(_ context.Context, id string, score float64) (*models.Grade, error) {
	g, ok := m.grades[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	g.Score = score
	cp := *g
	return &cp, nil
}

func (m *mockGradeRepo) Delete(_ context.Context, id string) (*models.Grade, error) {
	g, ok := m.grades[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(m.grades, id)
	return g, nil
}

func (m *mockGradeRepo) ListByStudent(_ context.Context, studentID string) ([]models.StudentGrade, error) {
	out := make([]models.StudentGrade, 0)
	for _, g := range m.grades {
		if g.StudentID != studentID {
			continue
		}
		out = append(out, models.StudentGrade{GradeID: g.ID, SubjectID: g.SubjectID, SubjectName: m.subjects.subjects[g.SubjectID].Name, Score: g.Score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubjectName != out[j].SubjectName {
			return out[i].SubjectName < out[j].SubjectName
		}
		return out[i].Score < out[j].Score
	})
	return out, nil
}

func (m *mockGradeRepo) ListBySubject(_ context.Context, subjectID string) ([]models.SubjectGrade, error) {
	var out []models.SubjectGrade
	for _, g := range m.grades {
		if g.SubjectID != subjectID {
			continue
		}
		st := m.students.students[g.StudentID]
		out = append(out, models.SubjectGrade{GradeID: g.ID, StudentID: st.ID, FirstName: st.FirstName, LastName: st.LastName, Email: st.Email, Score: g.Score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastName < out[j].LastName })
	return out, nil
}

type mockReportRepo struct {
	loads    map[string][]models.SubjectLoad
	students int
	subjects int
	teachers int
	calls    int
}

func (m *mockReportRepo) TeacherLoad(_ context.Context, teacherID string) ([]models.SubjectLoad, error) {
	return m.loads[teacherID], nil
}

func (m *mockReportRepo) CountStudents(context.Context) (int, error) {
	m.calls++
	return m.students, nil
}

func (m *mockReportRepo) CountSubjects(context.Context) (int, error) {
	m.calls++
	return m.subjects, nil
}

func (m *mockReportRepo) CountTeachers(context.Context) (int, error) {
	m.calls++
	return m.teachers, nil
}

// mockCacheRepo is an in-memory CacheRepository storing values by reference.
type mockCacheRepo struct {
	values      map[string]interface{}
	invalidated []string
	getErr      error
	setErr      error
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{values: map[string]interface{}{}}
}

func (m *mockCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if stats, ok := v.(*models.Stats); ok {
		if d, ok := dest.(*models.Stats); ok {
			*d = *stats
		}
	}
	return nil
}

func (m *mockCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			delete(m.values, k)
		}
	}
	return nil
}

type mockProfileRepo struct {
	profiles  map[string]*models.TeacherProfile
	upsertErr error
}

func (m *mockProfileRepo) FindByUserID(_ context.Context, userID string) (*models.TeacherProfile, error) {
	if p, ok := m.profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProfileRepo) Upsert(_ context.Context, profile *models.TeacherProfile) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	cp := *profile
	m.profiles[profile.UserID] = &cp
	return nil
}

func (m *mockProfileRepo) PhotoPaths(context.Context) ([]string, error) {
	out := make([]string, 0)
	for _, p := range m.profiles {
		if p.PhotoPath != nil {
			out = append(out, *p.PhotoPath)
		}
	}
	return out, nil
}

type mockPhotoStorage struct {
	files   map[string][]byte
	old     []string
	deleted []string
}

func (m *mockPhotoStorage) Save(name string, data []byte) (string, error) {
	m.files[name] = data
	return name, nil
}

func (m *mockPhotoStorage) Open(name string) (io.ReadCloser, error) {
	data, ok := m.files[name]
	if !ok {
		return nil, storage.ErrInvalidPath
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockPhotoStorage) Delete(name string) error {
	delete(m.files, name)
	m.deleted = append(m.deleted, name)
	return nil
}

func (m *mockPhotoStorage) ListOlderThan(string, time.Duration) ([]string, error) {
	return m.old, nil
}

type mockEnqueuer struct {
	jobs []jobs.Job
	err  error
}

func (m *mockEnqueuer) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}
