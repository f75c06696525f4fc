package ticket

import (
	"errors"
	"fixflow/bizerror"
	"fixflow/domain/master"
	"fixflow/idgen"
	"fixflow/persistence"
	"fixflow/session"
	"fmt"
	"strconv"
	"strings"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

var (
	ticketIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateTicketFunc          = CreateTicket
	QueryTicketsFunc          = QueryTickets
	DetailTicketFunc          = DetailTicket
	UpdateTicketFunc          = UpdateTicket
	UpdateTicketStatusFunc    = UpdateTicketStatus
	AssignTicketFunc          = AssignTicket
	CloseTicketFunc           = CloseTicket
	UpdateRemarkFunc          = UpdateRemark
	DeleteTicketFunc          = DeleteTicket
	AddTicketAttachmentsFunc  = AddTicketAttachments
	ListTicketAttachmentsFunc = ListTicketAttachments

	// PurgeTicketFilesFunc removes stored files of a deleted ticket,
	// wired to the active blob store at bootstrap.
	PurgeTicketFilesFunc func(ticketNumber string) error
)

const ticketSequenceID = types.ID(1)

const ticketNumberPrefix = "TKT"

func FormatTicketNumber(n int64) string {
	return fmt.Sprintf("%s%03d", ticketNumberPrefix, n)
}

func ParseTicketNumber(number string) (int64, error) {
	return strconv.ParseInt(strings.TrimPrefix(number, ticketNumberPrefix), 10, 64)
}

// PrepareTicketSequence seeds the singleton allocator row.
func PrepareTicketSequence(db *gorm.DB) error {
	seq := TicketSequence{}
	return db.Where(TicketSequence{ID: ticketSequenceID}).FirstOrCreate(&seq).Error
}

// nextTicketNumber allocates atomically: the increment takes the row lock
// until the surrounding transaction commits, so two concurrent creations can
// never observe the same value.
func nextTicketNumber(tx *gorm.DB) (string, error) {
	db := tx.Model(&TicketSequence{}).Where("id = ?", ticketSequenceID).
		Update("last_number", gorm.Expr("last_number + 1"))
	if db.Error != nil {
		return "", db.Error
	}
	if db.RowsAffected != 1 {
		return "", errors.New("ticket sequence row is missing")
	}
	seq := TicketSequence{}
	if err := tx.Where("id = ?", ticketSequenceID).First(&seq).Error; err != nil {
		return "", err
	}
	return FormatTicketNumber(seq.LastNumber), nil
}

func CreateTicket(c *TicketCreation, sec *session.Session) (*TicketDetail, error) {
	now := types.CurrentTimestamp()
	priority := c.Priority
	if priority == "" {
		priority = "Medium"
	}

	var created Ticket
	err := persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		number, err := nextTicketNumber(tx)
		if err != nil {
			return err
		}
		created = Ticket{
			ID:           idgen.NextID(ticketIdWorker),
			TicketNumber: number,

			Title:         c.Title,
			RequestorName: c.RequestorName,
			MobileNumber:  c.MobileNumber,
			ProjectID:     c.ProjectID,
			PlantID:       c.PlantID,
			ShopID:        c.ShopID,
			LineID:        c.LineID,
			Machine:       c.Machine,
			Explanation:   c.Explanation,
			DrfLink:       c.DrfLink,
			AzureLink:     c.AzureLink,
			Remark:        c.Remark,
			Priority:      priority,

			Status:     StatusCreated,
			CreateTime: now,
		}
		if err := tx.Create(&created).Error; err != nil {
			if persistence.IsDuplicateEntryError(err) {
				return bizerror.ErrConflict
			}
			return err
		}

		for _, a := range c.Attachments {
			a.ID = idgen.NextID(ticketIdWorker)
			a.TicketNumber = number
			a.CommentID = nil
			if a.UploadTime.Time().IsZero() {
				a.UploadTime = now
			}
			if err := tx.Create(&a).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return DetailTicket(created.TicketNumber, sec)
}

func QueryTickets(q TicketQuery, sec *session.Session) ([]TicketDetail, error) {
	tickets := []Ticket{}
	db := persistence.ActiveDataSourceManager.GormDB().Order("id ASC")
	if q.Search != "" {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		db = db.Where("LOWER(ticket_number) LIKE ? OR LOWER(requestor_name) LIKE ? OR "+
			"LOWER(explanation) LIKE ? OR LOWER(title) LIKE ?", pattern, pattern, pattern, pattern)
	}
	if err := db.Find(&tickets).Error; err != nil {
		return nil, err
	}
	return extendTickets(tickets)
}

func DetailTicket(ticketNumber string, sec *session.Session) (*TicketDetail, error) {
	ticket := Ticket{}
	db := persistence.ActiveDataSourceManager.GormDB()
	if err := db.Where("ticket_number = ?", ticketNumber).First(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	details, err := extendTickets([]Ticket{ticket})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// extendTickets appends master data names, attachments and history.
func extendTickets(tickets []Ticket) ([]TicketDetail, error) {
	details := make([]TicketDetail, 0, len(tickets))
	if len(tickets) == 0 {
		return details, nil
	}

	projectIds, plantIds, shopIds, lineIds := []types.ID{}, []types.ID{}, []types.ID{}, []types.ID{}
	numbers := make([]string, 0, len(tickets))
	for _, t := range tickets {
		projectIds = append(projectIds, t.ProjectID)
		plantIds = append(plantIds, t.PlantID)
		if t.ShopID != nil {
			shopIds = append(shopIds, *t.ShopID)
		}
		if t.LineID != nil {
			lineIds = append(lineIds, *t.LineID)
		}
		numbers = append(numbers, t.TicketNumber)
	}

	projectNames, err := master.ProjectNames(projectIds)
	if err != nil {
		return nil, err
	}
	plantNames, err := master.PlantNames(plantIds)
	if err != nil {
		return nil, err
	}
	shopNames, err := master.ShopNames(shopIds)
	if err != nil {
		return nil, err
	}
	lineNames, err := master.LineNames(lineIds)
	if err != nil {
		return nil, err
	}

	attachments, err := loadAttachments(numbers)
	if err != nil {
		return nil, err
	}
	history, err := loadHistory(numbers)
	if err != nil {
		return nil, err
	}

	for _, t := range tickets {
		d := TicketDetail{Ticket: t,
			ProjectName: projectNames[t.ProjectID],
			PlantName:   plantNames[t.PlantID],
			Attachments: []Attachment{},
			History:     []Comment{},
		}
		if t.ShopID != nil {
			d.ShopName = shopNames[*t.ShopID]
		}
		if t.LineID != nil {
			d.LineName = lineNames[*t.LineID]
		}
		if list, found := attachments[t.TicketNumber]; found {
			d.Attachments = list
		}
		if list, found := history[t.TicketNumber]; found {
			d.History = list
		}
		details = append(details, d)
	}
	return details, nil
}

// loadAttachments returns ticket-owned attachments, comment attachments are
// assembled by loadHistory.
func loadAttachments(ticketNumbers []string) (map[string][]Attachment, error) {
	records := []Attachment{}
	db := persistence.ActiveDataSourceManager.GormDB()
	if err := db.Where("ticket_number IN (?) AND comment_id IS NULL", ticketNumbers).
		Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	result := map[string][]Attachment{}
	for _, r := range records {
		result[r.TicketNumber] = append(result[r.TicketNumber], r)
	}
	return result, nil
}

func findTicket(tx *gorm.DB, ticketNumber string) (*Ticket, error) {
	ticket := Ticket{}
	if err := tx.Where("ticket_number = ?", ticketNumber).First(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func UpdateTicket(ticketNumber string, u *TicketUpdating, sec *session.Session) (*TicketDetail, error) {
	changes := map[string]interface{}{}
	if u.Title != nil {
		changes["title"] = *u.Title
	}
	if u.RequestorName != nil {
		changes["requestor_name"] = *u.RequestorName
	}
	if u.MobileNumber != nil {
		changes["mobile_number"] = *u.MobileNumber
	}
	if u.ProjectID != nil {
		changes["project_id"] = *u.ProjectID
	}
	if u.PlantID != nil {
		changes["plant_id"] = *u.PlantID
	}
	if u.ShopID != nil {
		changes["shop_id"] = *u.ShopID
	}
	if u.LineID != nil {
		changes["line_id"] = *u.LineID
	}
	if u.Machine != nil {
		changes["machine"] = *u.Machine
	}
	if u.Explanation != nil {
		changes["explanation"] = *u.Explanation
	}
	if u.DrfLink != nil {
		changes["drf_link"] = *u.DrfLink
	}
	if u.AzureLink != nil {
		changes["azure_link"] = *u.AzureLink
	}
	if u.Remark != nil {
		changes["remark"] = *u.Remark
	}
	if u.Priority != nil {
		changes["priority"] = *u.Priority
	}
	if len(changes) == 0 {
		return nil, &bizerror.ErrBadParam{Cause: errors.New("no update fields provided")}
	}

	err := persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		if _, err := findTicket(tx, ticketNumber); err != nil {
			return err
		}
		return tx.Model(&Ticket{}).Where("ticket_number = ?", ticketNumber).Update(changes).Error
	})
	if err != nil {
		return nil, err
	}
	return DetailTicket(ticketNumber, sec)
}

// UpdateTicketStatus performs one transition of the generic status-update
// path, with its side effects on adminReview and closedAt.
func UpdateTicketStatus(ticketNumber string, next Status, sec *session.Session) (*TicketDetail, error) {
	err := persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		t, err := findTicket(tx, ticketNumber)
		if err != nil {
			return err
		}
		if err := CheckTransition(t, next, sec); err != nil {
			return err
		}

		changes := map[string]interface{}{"status": next, "admin_review": 0}
		switch next {
		case StatusDone:
			changes["admin_review"] = 1
		case StatusClosed:
			if t.Status != StatusDone || t.AdminReview != 1 {
				return bizerror.ErrPreconditionFailed
			}
			changes["closed_time"] = types.CurrentTimestamp()
		}
		return tx.Model(&Ticket{}).Where("ticket_number = ?", ticketNumber).Update(changes).Error
	})
	if err != nil {
		return nil, err
	}
	return DetailTicket(ticketNumber, sec)
}

// AssignTicket is the admin action that moves a created or rework ticket to
// the assigned developer.
func AssignTicket(ticketNumber string, developer string, sec *session.Session) (*TicketDetail, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}
	err := persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		t, err := findTicket(tx, ticketNumber)
		if err != nil {
			return err
		}
		if t.Status != StatusCreated && t.Status != StatusRework {
			return bizerror.ErrPreconditionFailed
		}
		now := types.CurrentTimestamp()
		return tx.Model(&Ticket{}).Where("ticket_number = ?", ticketNumber).Update(map[string]interface{}{
			"status":        StatusAssigned,
			"assigned_to":   developer,
			"assigned_date": now,
			"admin_review":  0,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return DetailTicket(ticketNumber, sec)
}

// CloseTicket only succeeds on a done ticket that passed the admin review gate.
func CloseTicket(ticketNumber string, sec *session.Session) (*TicketDetail, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}
	err := persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		t, err := findTicket(tx, ticketNumber)
		if err != nil {
			return err
		}
		if t.Status != StatusDone || t.AdminReview != 1 {
			return bizerror.ErrPreconditionFailed
		}
		return tx.Model(&Ticket{}).Where("ticket_number = ?", ticketNumber).Update(map[string]interface{}{
			"status":       StatusClosed,
			"admin_review": 0,
			"closed_time":  types.CurrentTimestamp(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return DetailTicket(ticketNumber, sec)
}

func UpdateRemark(ticketNumber string, remark string, sec *session.Session) error {
	return persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		if _, err := findTicket(tx, ticketNumber); err != nil {
			return err
		}
		return tx.Model(&Ticket{}).Where("ticket_number = ?", ticketNumber).
			Update("remark", remark).Error
	})
}

// DeleteTicket removes the ticket with its history and attachment metadata,
// stored files are purged after the transaction commits.
func DeleteTicket(ticketNumber string, sec *session.Session) error {
	if !sec.IsAdmin() {
		return bizerror.ErrForbidden
	}
	err := persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		if _, err := findTicket(tx, ticketNumber); err != nil {
			return err
		}
		if err := tx.Delete(Ticket{}, "ticket_number = ?", ticketNumber).Error; err != nil {
			return err
		}
		if err := tx.Delete(Comment{}, "ticket_number = ?", ticketNumber).Error; err != nil {
			return err
		}
		return tx.Delete(Attachment{}, "ticket_number = ?", ticketNumber).Error
	})
	if err != nil {
		return err
	}

	if PurgeTicketFilesFunc != nil {
		if err := PurgeTicketFilesFunc(ticketNumber); err != nil {
			logrus.Warnf("failed to purge files of ticket %s: %v", ticketNumber, err)
		}
	}
	return nil
}

// ListTicketAttachments returns the attachment rows bound directly to a
// ticket, comment attachments are served with the history.
func ListTicketAttachments(ticketNumber string, sec *session.Session) ([]Attachment, error) {
	db := persistence.ActiveDataSourceManager.GormDB()
	if _, err := findTicket(db, ticketNumber); err != nil {
		return nil, err
	}
	byTicket, err := loadAttachments([]string{ticketNumber})
	if err != nil {
		return nil, err
	}
	records := byTicket[ticketNumber]
	if records == nil {
		records = []Attachment{}
	}
	return records, nil
}

// AddTicketAttachments appends stored file metadata to an existing ticket.
func AddTicketAttachments(ticketNumber string, attachments []Attachment, sec *session.Session) ([]Attachment, error) {
	if len(attachments) == 0 {
		return nil, &bizerror.ErrBadParam{Cause: errors.New("no files uploaded")}
	}
	now := types.CurrentTimestamp()
	created := make([]Attachment, 0, len(attachments))
	err := persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		if _, err := findTicket(tx, ticketNumber); err != nil {
			return err
		}
		for _, a := range attachments {
			a.ID = idgen.NextID(ticketIdWorker)
			a.TicketNumber = ticketNumber
			a.CommentID = nil
			if a.UploadTime.Time().IsZero() {
				a.UploadTime = now
			}
			if err := tx.Create(&a).Error; err != nil {
				return err
			}
			created = append(created, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
