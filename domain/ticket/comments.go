package ticket

import (
	"errors"
	"fixflow/bizerror"
	"fixflow/idgen"
	"fixflow/persistence"
	"fixflow/session"
	"strings"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	commentIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	AddCommentFunc          = AddComment
	EditCommentFunc         = EditComment
	DeleteCommentFunc       = DeleteComment
	DetailTicketHistoryFunc = DetailTicketHistory
)

// AddComment appends one history entry. Entries are individual rows with
// sonyflake ids, monotonic by creation time, so two rapid appends never
// collide or overwrite each other.
func AddComment(ticketNumber, text, user string, attachments []Attachment, sec *session.Session) (*Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" && len(attachments) == 0 {
		return nil, &bizerror.ErrBadParam{Cause: errors.New("comment text or attachments required")}
	}

	now := types.CurrentTimestamp()
	var created Comment
	err := persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		t, err := findTicket(tx, ticketNumber)
		if err != nil {
			return err
		}
		if user == "" {
			user = t.AssignedTo
		}
		if user == "" {
			user = "N/A"
		}

		created = Comment{
			ID:           idgen.NextID(commentIdWorker),
			TicketNumber: ticketNumber,
			Text:         text,
			User:         user,
			CreateTime:   now,
			Attachments:  []Attachment{},
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		for _, a := range attachments {
			a.ID = idgen.NextID(commentIdWorker)
			a.TicketNumber = ticketNumber
			commentId := created.ID
			a.CommentID = &commentId
			if a.UploadTime.Time().IsZero() {
				a.UploadTime = now
			}
			if err := tx.Create(&a).Error; err != nil {
				return err
			}
			created.Attachments = append(created.Attachments, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// EditComment rewrites the text of one entry and stamps editedAt. The entry
// id, creation date and attachments stay untouched.
func EditComment(ticketNumber string, commentId types.ID, newText, user string, sec *session.Session) (*Comment, error) {
	newText = strings.TrimSpace(newText)
	if newText == "" {
		return nil, &bizerror.ErrBadParam{Cause: errors.New("new comment text required")}
	}

	var edited Comment
	err := persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		if _, err := findTicket(tx, ticketNumber); err != nil {
			return err
		}
		comment := Comment{}
		if err := tx.Where("id = ? AND ticket_number = ?", commentId, ticketNumber).
			First(&comment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return bizerror.ErrNotFound
			}
			return err
		}

		changes := map[string]interface{}{"text": newText, "edit_time": types.CurrentTimestamp()}
		if user != "" {
			changes["user"] = user
		}
		if err := tx.Model(&Comment{}).Where("id = ?", commentId).Update(changes).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", commentId).First(&edited).Error; err != nil {
			return err
		}
		edited.Attachments = []Attachment{}
		return tx.Where("comment_id = ?", commentId).Order("id ASC").
			Find(&edited.Attachments).Error
	})
	if err != nil {
		return nil, err
	}
	return &edited, nil
}

// DeleteComment removes one entry by id, an absent id is reported as not
// found rather than silently ignored.
func DeleteComment(ticketNumber string, commentId types.ID, sec *session.Session) error {
	return persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		if _, err := findTicket(tx, ticketNumber); err != nil {
			return err
		}
		db := tx.Delete(Comment{}, "id = ? AND ticket_number = ?", commentId, ticketNumber)
		if db.Error != nil {
			return db.Error
		}
		if db.RowsAffected == 0 {
			return bizerror.ErrNotFound
		}
		return tx.Delete(Attachment{}, "comment_id = ?", commentId).Error
	})
}

func DetailTicketHistory(ticketNumber string, sec *session.Session) (*TicketHistoryDetail, error) {
	detail, err := DetailTicketFunc(ticketNumber, sec)
	if err != nil {
		return nil, err
	}
	return &TicketHistoryDetail{
		Comments:          detail.History,
		Remark:            detail.Remark,
		Title:             detail.Title,
		DrfLink:           detail.DrfLink,
		AzureLink:         detail.AzureLink,
		TicketAttachments: detail.Attachments,
	}, nil
}

// loadHistory assembles comments with their attachments, ordered by id which
// is monotonic by creation time.
func loadHistory(ticketNumbers []string) (map[string][]Comment, error) {
	comments := []Comment{}
	db := persistence.ActiveDataSourceManager.GormDB()
	if err := db.Where("ticket_number IN (?)", ticketNumbers).
		Order("id ASC").Find(&comments).Error; err != nil {
		return nil, err
	}

	commentIds := make([]types.ID, 0, len(comments))
	for _, c := range comments {
		commentIds = append(commentIds, c.ID)
	}
	attachments := []Attachment{}
	if len(commentIds) > 0 {
		if err := db.Where("comment_id IN (?)", commentIds).
			Order("id ASC").Find(&attachments).Error; err != nil {
			return nil, err
		}
	}
	byComment := map[types.ID][]Attachment{}
	for _, a := range attachments {
		if a.CommentID != nil {
			byComment[*a.CommentID] = append(byComment[*a.CommentID], a)
		}
	}

	result := map[string][]Comment{}
	for _, c := range comments {
		c.Attachments = byComment[c.ID]
		if c.Attachments == nil {
			c.Attachments = []Attachment{}
		}
		result[c.TicketNumber] = append(result[c.TicketNumber], c)
	}
	return result, nil
}
