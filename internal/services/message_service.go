package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/egi-ims/messages-backend/internal/apperrors"
	"github.com/egi-ims/messages-backend/internal/checkin"
	"github.com/egi-ims/messages-backend/internal/models"
	"github.com/egi-ims/messages-backend/internal/repositories"
)

// DefaultPageLimit is used when a listing request does not restrict the
// number of results.
const DefaultPageLimit = 100

// Directory answers which users hold a role within an IMS process.
// Implemented by the Check-in client.
type Directory interface {
	ListUsersWithGroupRole(ctx context.Context, process, role string) ([]checkin.UserInfo, error)
}

// MessageService implements the notification messaging operations on top of
// the message repository and the role directory.
type MessageService struct {
	messages  repositories.MessageRepository
	directory Directory
	log       zerolog.Logger
}

// NewMessageService creates a new MessageService
func NewMessageService(messages repositories.MessageRepository, directory Directory, log zerolog.Logger) *MessageService {
	return &MessageService{
		messages:  messages,
		directory: directory,
		log:       log,
	}
}

// Send creates notification messages and returns how many were created.
//
// A request either addresses one user directly or all users holding a role
// within an IMS process. Fan-out never notifies the sender, so the returned
// count can be zero when the caller is the only role holder. The fan-out
// batch is persisted atomically; when the directory lookup succeeds but the
// persist fails, no messages exist and the caller may retry.
func (s *MessageService) Send(ctx context.Context, callerID string, req *models.SendMessageRequest) (int, error) {
	if strings.TrimSpace(req.Message) == "" {
		return 0, apperrors.NewValidation("message text must not be blank")
	}

	sendToRole := req.SendsToRole()
	if sendToRole && (req.Process == "" || req.Role == "") {
		return 0, apperrors.NewValidation("both IMS process and role must be specified when sending to users holding role")
	}
	if !sendToRole && strings.TrimSpace(req.CheckinUserID) == "" {
		return 0, apperrors.NewValidation("message must be addressed to a user or to a role")
	}

	log := s.log.With().Str("userIdCaller", callerID).Logger()

	if !sendToRole {
		message := &models.Message{
			Message:       req.Message,
			Category:      req.Category,
			Link:          req.Link,
			CheckinUserID: req.CheckinUserID,
		}
		if err := s.messages.Insert(ctx, message); err != nil {
			log.Error().Err(err).Msg("Failed to send message")
			return 0, apperrors.NewUnavailable("storing message: %v", err)
		}

		log.Info().Str("recipient", req.CheckinUserID).Msg("Message sent")
		return 1, nil
	}

	users, err := s.directory.ListUsersWithGroupRole(ctx, req.Process, req.Role)
	if err != nil {
		log.Error().Err(err).Str("process", req.Process).Str("role", req.Role).
			Msg("Failed to list users with role")
		return 0, err
	}

	// Exclude the caller, senders never notify themselves.
	messages := make([]*models.Message, 0, len(users))
	for _, user := range users {
		if user.CheckinUserID == callerID {
			continue
		}
		messages = append(messages, &models.Message{
			Message:       req.Message,
			Category:      req.Category,
			Link:          req.Link,
			CheckinUserID: user.CheckinUserID,
		})
	}

	if err := s.messages.InsertBatch(ctx, messages); err != nil {
		log.Error().Err(err).Msg("Failed to send messages")
		return 0, apperrors.NewUnavailable("storing messages: %v", err)
	}

	log.Info().Str("process", req.Process).Str("role", req.Role).
		Int("messageCount", len(messages)).Msg("Messages sent")

	return len(messages), nil
}

// MarkRead marks one message of the caller as read. Marking an already-read
// message again succeeds without touching the record.
func (s *MessageService) MarkRead(ctx context.Context, callerID string, messageID uint) error {
	message, err := s.messages.Find(ctx, messageID)
	if err != nil {
		return apperrors.NewUnavailable("loading message: %v", err)
	}
	if message == nil {
		return apperrors.NewNotFound("message not found")
	}
	if message.CheckinUserID != callerID {
		return apperrors.NewForbidden("can only read your own messages")
	}
	if message.WasRead {
		return nil
	}

	message.WasRead = true
	if err := s.messages.UpdateBatch(ctx, []*models.Message{message}); err != nil {
		return apperrors.NewUnavailable("updating message: %v", err)
	}

	s.log.Info().Str("userIdCaller", callerID).Uint("messageId", messageID).
		Msg("Message marked read")

	return nil
}

// MarkAllRead marks every unread message of the caller as read. Messages
// arriving concurrently may or may not be included.
func (s *MessageService) MarkAllRead(ctx context.Context, callerID string) error {
	unread, err := s.messages.FindUnread(ctx, callerID)
	if err != nil {
		return apperrors.NewUnavailable("loading unread messages: %v", err)
	}

	updated := make([]*models.Message, len(unread))
	for i := range unread {
		unread[i].WasRead = true
		updated[i] = &unread[i]
	}

	if err := s.messages.UpdateBatch(ctx, updated); err != nil {
		return apperrors.NewUnavailable("updating messages: %v", err)
	}

	s.log.Info().Str("userIdCaller", callerID).Int("messageCount", len(updated)).
		Msg("All messages marked read")

	return nil
}

// CountUnread returns the number of unread messages of the caller.
func (s *MessageService) CountUnread(ctx context.Context, callerID string) (int64, error) {
	count, err := s.messages.CountUnread(ctx, callerID)
	if err != nil {
		return 0, apperrors.NewUnavailable("counting unread messages: %v", err)
	}
	return count, nil
}

// List returns the caller's messages sent strictly before the given instant,
// newest first, at most limit rows. A limit of zero means DefaultPageLimit;
// other values pass through untouched.
//
// When exactly limit rows come back the page carries a next cursor equal to
// the sentOn of the oldest row. This heuristic can offer one empty extra
// page when the remaining count was exactly limit; that matches the
// documented pagination contract and is left as is.
func (s *MessageService) List(ctx context.Context, callerID string, from time.Time, limit int) (*models.PageOfMessages, error) {
	if limit == 0 {
		limit = DefaultPageLimit
	}

	messages, err := s.messages.FindPage(ctx, callerID, from, limit)
	if err != nil {
		return nil, apperrors.NewUnavailable("loading messages: %v", err)
	}

	page := &models.PageOfMessages{
		Kind:     "PageOfMessages",
		From:     from,
		Limit:    limit,
		Count:    len(messages),
		Elements: messages,
	}
	if len(messages) > 0 && len(messages) == limit {
		oldest := messages[len(messages)-1].SentOn
		page.NextFrom = &oldest
	}

	return page, nil
}
