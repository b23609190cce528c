// Package memory provides an in-memory store implementation for tests and
// local development. It honors the same contracts as the SQL store: the
// enrollment uniqueness guard and the atomic default-column section both hold
// under the store mutex.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/google/uuid"
)

type Store struct {
	mu sync.Mutex

	contacts      map[string]*models.Contact
	workspaces    map[string]*models.Workspace
	categories    map[string]*models.Category
	contactCats   map[string]map[string]bool // contactID -> categoryID set
	activities    []*models.Activity
	columns       map[string]*models.TaskColumn
	tasks         map[string]*models.Task
	emailSends    []*models.EmailSend
	smsMessages   []*models.SmsMessage
	conversations map[string]*models.Conversation // workspaceID+contactID
	sequences     map[string]*models.Sequence
	enrollments   map[string]*models.Enrollment
	aiUsage       []*models.AIUsage
}

func NewStore() *Store {
	return &Store{
		contacts:      make(map[string]*models.Contact),
		workspaces:    make(map[string]*models.Workspace),
		categories:    make(map[string]*models.Category),
		contactCats:   make(map[string]map[string]bool),
		columns:       make(map[string]*models.TaskColumn),
		tasks:         make(map[string]*models.Task),
		conversations: make(map[string]*models.Conversation),
		sequences:     make(map[string]*models.Sequence),
		enrollments:   make(map[string]*models.Enrollment),
	}
}

var _ persistence.Persistence = (*Store)(nil)

// Contacts

func (s *Store) ContactByID(ctx context.Context, id string) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contact, ok := s.contacts[id]
	if !ok {
		return nil, persistence.NewStoreError("ContactByID", "contact", id, persistence.ErrContactNotFound)
	}

	copied := *contact

	return &copied, nil
}

func (s *Store) ContactsByWorkspace(ctx context.Context, workspaceID string) ([]*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.Contact

	for _, contact := range s.contacts {
		if contact.WorkspaceID == workspaceID {
			copied := *contact
			result = append(result, &copied)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (s *Store) SaveContact(ctx context.Context, contact *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *contact
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}

	copied.UpdatedAt = time.Now().UTC()
	s.contacts[copied.ID] = &copied

	return nil
}

func (s *Store) UpdateContactStage(ctx context.Context, contactID, stage string) error {
	return s.mutateContact("UpdateContactStage", contactID, func(c *models.Contact) {
		c.Stage = stage
	})
}

func (s *Store) UpdateContactAssignee(ctx context.Context, contactID, userID string) error {
	return s.mutateContact("UpdateContactAssignee", contactID, func(c *models.Contact) {
		c.AssignedToID = userID
	})
}

func (s *Store) TouchContactLastContacted(ctx context.Context, contactID string, at time.Time) error {
	return s.mutateContact("TouchContactLastContacted", contactID, func(c *models.Contact) {
		c.LastContactedAt = &at
	})
}

func (s *Store) IsContactOptedOut(ctx context.Context, contactID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contact, ok := s.contacts[contactID]
	if !ok {
		return false, persistence.NewStoreError("IsContactOptedOut", "contact", contactID, persistence.ErrContactNotFound)
	}

	return contact.OptedOut, nil
}

func (s *Store) mutateContact(op, contactID string, fn func(*models.Contact)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contact, ok := s.contacts[contactID]
	if !ok {
		return persistence.NewStoreError(op, "contact", contactID, persistence.ErrContactNotFound)
	}

	fn(contact)
	contact.UpdatedAt = time.Now().UTC()

	return nil
}

// Workspaces

func (s *Store) WorkspaceByID(ctx context.Context, id string) (*models.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	workspace, ok := s.workspaces[id]
	if !ok {
		return nil, persistence.NewStoreError("WorkspaceByID", "workspace", id, persistence.ErrWorkspaceNotFound)
	}

	copied := *workspace

	return &copied, nil
}

func (s *Store) SaveWorkspace(ctx context.Context, workspace *models.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *workspace
	s.workspaces[copied.ID] = &copied

	return nil
}

// Categories

func (s *Store) UpsertCategory(ctx context.Context, workspaceID, name string) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, category := range s.categories {
		if category.WorkspaceID == workspaceID && category.Name == name {
			copied := *category

			return &copied, nil
		}
	}

	category := &models.Category{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		Name:        name,
	}
	s.categories[category.ID] = category

	copied := *category

	return &copied, nil
}

func (s *Store) UpsertContactCategory(ctx context.Context, contactID, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.contactCats[contactID] == nil {
		s.contactCats[contactID] = make(map[string]bool)
	}

	s.contactCats[contactID][categoryID] = true

	return nil
}

func (s *Store) RemoveContactCategory(ctx context.Context, contactID, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.contactCats[contactID], categoryID)

	return nil
}

func (s *Store) ContactHasCategory(ctx context.Context, contactID, categoryName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for categoryID := range s.contactCats[contactID] {
		if category, ok := s.categories[categoryID]; ok && category.Name == categoryName {
			return true, nil
		}
	}

	return false, nil
}

// Activity log

func (s *Store) CreateActivity(ctx context.Context, activity *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *activity
	if copied.ID == "" {
		copied.ID = uuid.New().String()
	}

	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}

	s.activities = append(s.activities, &copied)

	return nil
}

// Activities returns the activity log for a contact, oldest first. Test hook.
func (s *Store) Activities(contactID string) []*models.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.Activity

	for _, activity := range s.activities {
		if activity.ContactID == contactID {
			copied := *activity
			result = append(result, &copied)
		}
	}

	return result
}

// Task board

// FindOrCreateDefaultColumn is atomic under the store mutex, which stands in
// for the serializable transaction the SQL store uses: concurrent first-runs
// against an empty board produce exactly one default column.
func (s *Store) FindOrCreateDefaultColumn(ctx context.Context, workspaceID string) (*models.TaskColumn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, column := range s.columns {
		if column.WorkspaceID == workspaceID && column.IsDefault {
			copied := *column

			return &copied, nil
		}
	}

	column := &models.TaskColumn{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		Name:        "To Do",
		Position:    0,
		IsDefault:   true,
	}
	s.columns[column.ID] = column

	copied := *column

	return &copied, nil
}

func (s *Store) ColumnByID(ctx context.Context, id string) (*models.TaskColumn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	column, ok := s.columns[id]
	if !ok {
		return nil, persistence.NewStoreError("ColumnByID", "column", id, persistence.ErrColumnNotFound)
	}

	copied := *column

	return &copied, nil
}

// NextTaskNumber reads the current max and adds one. Not serialized with
// CreateTask: concurrent callers can observe the same max.
func (s *Store) NextTaskNumber(ctx context.Context, workspaceID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	maxNumber := 0

	for _, task := range s.tasks {
		if task.WorkspaceID == workspaceID && task.Number > maxNumber {
			maxNumber = task.Number
		}
	}

	return maxNumber + 1, nil
}

func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *task
	if copied.ID == "" {
		copied.ID = uuid.New().String()
	}

	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}

	s.tasks[copied.ID] = &copied
	task.ID = copied.ID
	task.CreatedAt = copied.CreatedAt

	return nil
}

// Tasks returns all tasks in a workspace, by number. Test hook.
func (s *Store) Tasks(workspaceID string) []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.Task

	for _, task := range s.tasks {
		if task.WorkspaceID == workspaceID {
			copied := *task
			result = append(result, &copied)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })

	return result
}

// Messaging

func (s *Store) RecordEmailSend(ctx context.Context, send *models.EmailSend) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *send
	if copied.ID == "" {
		copied.ID = uuid.New().String()
	}

	s.emailSends = append(s.emailSends, &copied)
	send.ID = copied.ID

	return nil
}

func (s *Store) RecordSmsMessage(ctx context.Context, msg *models.SmsMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *msg
	if copied.ID == "" {
		copied.ID = uuid.New().String()
	}

	s.smsMessages = append(s.smsMessages, &copied)
	msg.ID = copied.ID

	return nil
}

func (s *Store) UpsertConversation(ctx context.Context, workspaceID, contactID, lastMessage string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := workspaceID + "/" + contactID

	conversation, ok := s.conversations[key]
	if !ok {
		conversation = &models.Conversation{
			ID:          uuid.New().String(),
			WorkspaceID: workspaceID,
			ContactID:   contactID,
		}
		s.conversations[key] = conversation
	}

	conversation.LastMessage = lastMessage
	conversation.LastMessageAt = at

	return nil
}

func (s *Store) LastCampaignMessageAt(ctx context.Context, contactID string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var last *time.Time

	for _, send := range s.emailSends {
		if send.ContactID == contactID && send.SequenceID != "" {
			if last == nil || send.SentAt.After(*last) {
				at := send.SentAt
				last = &at
			}
		}
	}

	for _, msg := range s.smsMessages {
		if msg.ContactID == contactID && msg.SequenceID != "" {
			if last == nil || msg.SentAt.After(*last) {
				at := msg.SentAt
				last = &at
			}
		}
	}

	return last, nil
}

// EmailSends returns recorded email sends for a contact. Test hook.
func (s *Store) EmailSends(contactID string) []*models.EmailSend {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.EmailSend

	for _, send := range s.emailSends {
		if send.ContactID == contactID {
			copied := *send
			result = append(result, &copied)
		}
	}

	return result
}

// SmsMessages returns recorded SMS messages for a contact. Test hook.
func (s *Store) SmsMessages(contactID string) []*models.SmsMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.SmsMessage

	for _, msg := range s.smsMessages {
		if msg.ContactID == contactID {
			copied := *msg
			result = append(result, &copied)
		}
	}

	return result
}

// Conversation returns the SMS thread for a contact, or nil. Test hook.
func (s *Store) Conversation(workspaceID, contactID string) *models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversation, ok := s.conversations[workspaceID+"/"+contactID]
	if !ok {
		return nil
	}

	copied := *conversation

	return &copied
}

// Sequences

func (s *Store) SequenceByID(ctx context.Context, id string) (*models.Sequence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sequence, ok := s.sequences[id]
	if !ok {
		return nil, persistence.NewStoreError("SequenceByID", "sequence", id, persistence.ErrSequenceNotFound)
	}

	copied := *sequence

	return &copied, nil
}

func (s *Store) SequencesByWorkspace(ctx context.Context, workspaceID string) ([]*models.Sequence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.Sequence

	for _, sequence := range s.sequences {
		if sequence.WorkspaceID == workspaceID {
			copied := *sequence
			result = append(result, &copied)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (s *Store) ActiveSequencesByTrigger(ctx context.Context, workspaceID string, triggerType models.TriggerType) ([]*models.Sequence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.Sequence

	for _, sequence := range s.sequences {
		if sequence.WorkspaceID == workspaceID &&
			sequence.Status == models.SequenceStatusActive &&
			sequence.TriggerType == triggerType {
			copied := *sequence
			result = append(result, &copied)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (s *Store) SaveSequence(ctx context.Context, sequence *models.Sequence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *sequence
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}

	copied.UpdatedAt = time.Now().UTC()
	s.sequences[copied.ID] = &copied

	return nil
}

// Enrollments

func (s *Store) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.enrollments {
		if existing.SequenceID == enrollment.SequenceID &&
			existing.ContactID == enrollment.ContactID &&
			existing.Status == models.EnrollmentActive {
			return persistence.NewStoreError("CreateEnrollment", "enrollment", enrollment.ID, persistence.ErrEnrollmentExists)
		}
	}

	copied := *enrollment
	if copied.ID == "" {
		copied.ID = uuid.New().String()
	}

	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}

	copied.UpdatedAt = copied.CreatedAt
	s.enrollments[copied.ID] = &copied
	enrollment.ID = copied.ID
	enrollment.CreatedAt = copied.CreatedAt

	return nil
}

func (s *Store) EnrollmentByID(ctx context.Context, id string) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	enrollment, ok := s.enrollments[id]
	if !ok {
		return nil, persistence.NewStoreError("EnrollmentByID", "enrollment", id, persistence.ErrEnrollmentNotFound)
	}

	copied := *enrollment

	return &copied, nil
}

func (s *Store) ActiveEnrollment(ctx context.Context, sequenceID, contactID string) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, enrollment := range s.enrollments {
		if enrollment.SequenceID == sequenceID &&
			enrollment.ContactID == contactID &&
			enrollment.Status == models.EnrollmentActive {
			copied := *enrollment

			return &copied, nil
		}
	}

	return nil, persistence.NewStoreError("ActiveEnrollment", "enrollment", sequenceID+"/"+contactID, persistence.ErrEnrollmentNotFound)
}

func (s *Store) LatestEnrollment(ctx context.Context, sequenceID, contactID string) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *models.Enrollment

	for _, enrollment := range s.enrollments {
		if enrollment.SequenceID == sequenceID && enrollment.ContactID == contactID {
			if latest == nil || enrollment.CreatedAt.After(latest.CreatedAt) {
				latest = enrollment
			}
		}
	}

	if latest == nil {
		return nil, persistence.NewStoreError("LatestEnrollment", "enrollment", sequenceID+"/"+contactID, persistence.ErrEnrollmentNotFound)
	}

	copied := *latest

	return &copied, nil
}

func (s *Store) UpdateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.enrollments[enrollment.ID]; !ok {
		return persistence.NewStoreError("UpdateEnrollment", "enrollment", enrollment.ID, persistence.ErrEnrollmentNotFound)
	}

	copied := *enrollment
	copied.UpdatedAt = time.Now().UTC()
	s.enrollments[copied.ID] = &copied

	return nil
}

func (s *Store) DueEnrollments(ctx context.Context, before time.Time, limit int) ([]*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.Enrollment

	for _, enrollment := range s.enrollments {
		if enrollment.Status == models.EnrollmentActive &&
			enrollment.NextStepAt != nil &&
			!enrollment.NextStepAt.After(before) {
			copied := *enrollment
			result = append(result, &copied)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].NextStepAt.Before(*result[j].NextStepAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// AI usage

func (s *Store) RecordAIUsage(ctx context.Context, usage *models.AIUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *usage
	if copied.ID == "" {
		copied.ID = uuid.New().String()
	}

	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}

	s.aiUsage = append(s.aiUsage, &copied)

	return nil
}

// AIUsageRecords returns logged usage for a workspace. Test hook.
func (s *Store) AIUsageRecords(workspaceID string) []*models.AIUsage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.AIUsage

	for _, usage := range s.aiUsage {
		if usage.WorkspaceID == workspaceID {
			copied := *usage
			result = append(result, &copied)
		}
	}

	return result
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}
