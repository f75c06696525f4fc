package ticket

import (
	"github.com/fundwit/go-commons/types"
)

type Ticket struct {
	ID           types.ID `json:"id" gorm:"primary_key"`
	TicketNumber string   `json:"ticketNumber" gorm:"unique_index:uni_ticket_number"`

	Title         string    `json:"title"`
	RequestorName string    `json:"requestorName"`
	MobileNumber  string    `json:"mobileNumber"`
	ProjectID     types.ID  `json:"projectId"`
	PlantID       types.ID  `json:"plantId"`
	ShopID        *types.ID `json:"shopId"`
	LineID        *types.ID `json:"lineId"`
	Machine       string    `json:"machine"`
	Explanation   string    `json:"explanation" sql:"type:text"`
	DrfLink       string    `json:"drfLink"`
	AzureLink     string    `json:"azureLink"`
	Remark        string    `json:"remark" sql:"type:text"`
	Priority      string    `json:"priority"`

	Status       Status           `json:"status"`
	AssignedTo   string           `json:"assignedTo"`
	AssignedDate *types.Timestamp `json:"assignedDate"`
	AdminReview  int              `json:"adminReview"`

	CreateTime types.Timestamp  `json:"createdAt" sql:"type:DATETIME(6) NOT NULL"`
	ClosedTime *types.Timestamp `json:"closedAt"`
}

// Comment is one entry of the append-only ticket history. Entries are
// independent rows so concurrent appends never rewrite each other.
type Comment struct {
	ID           types.ID `json:"id" gorm:"primary_key"`
	TicketNumber string   `json:"-" gorm:"index:idx_comment_ticket"`

	Text string `json:"text" sql:"type:text"`
	User string `json:"user"`

	CreateTime types.Timestamp  `json:"date" sql:"type:DATETIME(6) NOT NULL"`
	EditTime   *types.Timestamp `json:"editedAt,omitempty"`

	Attachments []Attachment `json:"attachments" gorm:"-"`
}

// Attachment is stored file metadata, owned by a ticket directly or by one
// of its history comments.
type Attachment struct {
	ID           types.ID  `json:"-" gorm:"primary_key"`
	TicketNumber string    `json:"-" gorm:"index:idx_attachment_ticket"`
	CommentID    *types.ID `json:"-" gorm:"index:idx_attachment_comment"`

	Filename       string          `json:"filename"`
	StoredFilename string          `json:"storedFilename"`
	Path           string          `json:"path"`
	Mimetype       string          `json:"mimetype"`
	Size           int64           `json:"size"`
	UploadTime     types.Timestamp `json:"uploadedAt" sql:"type:DATETIME(6) NOT NULL"`
}

// TicketSequence is a singleton row, the ticket number allocator increments
// last_number inside the creation transaction.
type TicketSequence struct {
	ID         types.ID `gorm:"primary_key"`
	LastNumber int64
}

type TicketDetail struct {
	Ticket

	ProjectName string `json:"projectName"`
	PlantName   string `json:"plantName"`
	ShopName    string `json:"shopName"`
	LineName    string `json:"lineName"`

	Attachments []Attachment `json:"attachments"`
	History     []Comment    `json:"history"`
}

type TicketCreation struct {
	Title         string    `json:"title" form:"title" binding:"required"`
	RequestorName string    `json:"requestorName" form:"requestorName" binding:"required"`
	MobileNumber  string    `json:"mobileNumber" form:"mobileNumber" binding:"omitempty,numeric,max=10"`
	ProjectID     types.ID  `json:"projectId" form:"projectId" binding:"required"`
	PlantID       types.ID  `json:"plantId" form:"plantId" binding:"required"`
	ShopID        *types.ID `json:"shopId" form:"shopId"`
	LineID        *types.ID `json:"lineId" form:"lineId"`
	Machine       string    `json:"machine" form:"machine"`
	Explanation   string    `json:"explanation" form:"explanation" binding:"required"`
	DrfLink       string    `json:"drfLink" form:"drfLink"`
	AzureLink     string    `json:"azureLink" form:"azureLink"`
	Remark        string    `json:"remark" form:"remark"`
	Priority      string    `json:"priority" form:"priority"`

	Attachments []Attachment `json:"-" form:"-"`
}

type TicketUpdating struct {
	Title         *string   `json:"title"`
	RequestorName *string   `json:"requestorName"`
	MobileNumber  *string   `json:"mobileNumber" binding:"omitempty,numeric,max=10"`
	ProjectID     *types.ID `json:"projectId"`
	PlantID       *types.ID `json:"plantId"`
	ShopID        *types.ID `json:"shopId"`
	LineID        *types.ID `json:"lineId"`
	Machine       *string   `json:"machine"`
	Explanation   *string   `json:"explanation"`
	DrfLink       *string   `json:"drfLink"`
	AzureLink     *string   `json:"azureLink"`
	Remark        *string   `json:"remark"`
	Priority      *string   `json:"priority"`
}

type TicketQuery struct {
	Search string `json:"search" form:"search"`
}

// TicketHistoryDetail is the response shape of the history endpoint.
type TicketHistoryDetail struct {
	Comments          []Comment    `json:"comments"`
	Remark            string       `json:"remark"`
	Title             string       `json:"title"`
	DrfLink           string       `json:"drfLink"`
	AzureLink         string       `json:"azureLink"`
	TicketAttachments []Attachment `json:"ticketAttachments"`
}
