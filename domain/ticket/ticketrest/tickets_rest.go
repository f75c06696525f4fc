package ticketrest

import (
	"fixflow/attachment"
	"fixflow/bizerror"
	"fixflow/domain/ticket"
	"fixflow/session"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathTickets = "/v1/tickets"
)

type StatusUpdating struct {
	Status string `json:"status" binding:"required"`
}

type AssignRequest struct {
	Developer string `json:"developer" binding:"required"`
}

type RemarkUpdating struct {
	Remark string `json:"remark"`
}

type CommentCreation struct {
	Text string `json:"text" form:"text"`
	User string `json:"user" form:"user"`
}

type CommentUpdating struct {
	Text string `json:"text" binding:"required"`
	User string `json:"user"`
}

// RegisterPublicTicketsRestAPI exposes the reporting endpoints which operators
// on the shop floor reach without an account.
func RegisterPublicTicketsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathTickets, middleWares...)
	g.POST("", handleCreateTicket)
	g.POST("/:ticketNumber/attachments", handleAddAttachments)
}

func RegisterTicketsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathTickets, middleWares...)
	g.GET("", handleQueryTickets)
	g.GET("/:ticketNumber", handleDetailTicket)
	g.PUT("/:ticketNumber", handleUpdateTicket)
	g.DELETE("/:ticketNumber", handleDeleteTicket)
	g.PUT("/:ticketNumber/status", handleUpdateStatus)
	g.POST("/:ticketNumber/assign", handleAssignTicket)
	g.POST("/:ticketNumber/close", handleCloseTicket)
	g.PUT("/:ticketNumber/remark", session.AdminOnlyFilter(), handleUpdateRemark)
	g.GET("/:ticketNumber/history", handleTicketHistory)
	g.GET("/:ticketNumber/attachments", handleListAttachments)
	g.POST("/:ticketNumber/comments", handleAddComment)
	g.PUT("/:ticketNumber/comments/:commentId", handleEditComment)
	g.DELETE("/:ticketNumber/comments/:commentId", handleDeleteComment)
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

func handleCreateTicket(c *gin.Context) {
	creation := ticket.TicketCreation{}
	var files []*multipart.FileHeader
	if isMultipart(c) {
		if err := c.ShouldBind(&creation); err != nil {
			panic(&bizerror.ErrBadParam{Cause: err})
		}
		if form, err := c.MultipartForm(); err == nil {
			files = form.File["attachments"]
		}
		// an invalid upload must not leave a committed ticket behind
		if err := attachment.ValidateFilesFunc(files); err != nil {
			panic(err)
		}
	} else {
		if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
			panic(&bizerror.ErrBadParam{Cause: err})
		}
	}

	sec := session.FindSession(c)
	detail, err := ticket.CreateTicketFunc(&creation, sec)
	if err != nil {
		panic(err)
	}

	if len(files) > 0 {
		records, err := attachment.SaveUploadsFunc(detail.TicketNumber, files)
		if err != nil {
			panic(err)
		}
		if _, err := ticket.AddTicketAttachmentsFunc(detail.TicketNumber, records, sec); err != nil {
			attachment.RemoveUploadsFunc(records)
			panic(err)
		}
		detail, err = ticket.DetailTicketFunc(detail.TicketNumber, sec)
		if err != nil {
			panic(err)
		}
	}
	c.JSON(http.StatusCreated, detail)
}

func handleQueryTickets(c *gin.Context) {
	query := ticket.TicketQuery{}
	if err := c.MustBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := ticket.QueryTicketsFunc(query, session.FindSession(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleDetailTicket(c *gin.Context) {
	detail, err := ticket.DetailTicketFunc(c.Param("ticketNumber"), session.FindSession(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleUpdateTicket(c *gin.Context) {
	updating := ticket.TicketUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	detail, err := ticket.UpdateTicketFunc(c.Param("ticketNumber"), &updating, session.FindSession(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleDeleteTicket(c *gin.Context) {
	if err := ticket.DeleteTicketFunc(c.Param("ticketNumber"), session.FindSession(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleUpdateStatus(c *gin.Context) {
	updating := StatusUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	next, err := ticket.Canonicalize(updating.Status)
	if err != nil {
		panic(err)
	}
	detail, err := ticket.UpdateTicketStatusFunc(c.Param("ticketNumber"), next, session.FindSession(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleAssignTicket(c *gin.Context) {
	req := AssignRequest{}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	detail, err := ticket.AssignTicketFunc(c.Param("ticketNumber"), req.Developer, session.FindSession(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleCloseTicket(c *gin.Context) {
	detail, err := ticket.CloseTicketFunc(c.Param("ticketNumber"), session.FindSession(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleUpdateRemark(c *gin.Context) {
	updating := RemarkUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := ticket.UpdateRemarkFunc(c.Param("ticketNumber"), updating.Remark, session.FindSession(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleTicketHistory(c *gin.Context) {
	detail, err := ticket.DetailTicketHistoryFunc(c.Param("ticketNumber"), session.FindSession(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleAddAttachments(c *gin.Context) {
	ticketNumber := c.Param("ticketNumber")
	form, err := c.MultipartForm()
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	files := form.File["attachments"]
	if len(files) == 0 {
		files = form.File["files"]
	}

	sec := session.FindSession(c)
	records, err := attachment.SaveUploadsFunc(ticketNumber, files)
	if err != nil {
		panic(err)
	}
	added, err := ticket.AddTicketAttachmentsFunc(ticketNumber, records, sec)
	if err != nil {
		attachment.RemoveUploadsFunc(records)
		panic(err)
	}
	c.JSON(http.StatusCreated, added)
}

func handleListAttachments(c *gin.Context) {
	records, err := ticket.ListTicketAttachmentsFunc(c.Param("ticketNumber"), session.FindSession(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleAddComment(c *gin.Context) {
	ticketNumber := c.Param("ticketNumber")
	creation := CommentCreation{}
	var files []ticket.Attachment
	if isMultipart(c) {
		if err := c.ShouldBind(&creation); err != nil {
			panic(&bizerror.ErrBadParam{Cause: err})
		}
		var headers []*multipart.FileHeader
		if form, err := c.MultipartForm(); err == nil {
			headers = form.File["attachments"]
		}
		if err := attachment.ValidateFilesFunc(headers); err != nil {
			panic(err)
		}
		if len(headers) > 0 {
			records, err := attachment.SaveUploadsFunc("comments/"+ticketNumber, headers)
			if err != nil {
				panic(err)
			}
			files = records
		}
	} else {
		if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
			panic(&bizerror.ErrBadParam{Cause: err})
		}
	}

	comment, err := ticket.AddCommentFunc(ticketNumber, creation.Text, creation.User, files, session.FindSession(c))
	if err != nil {
		attachment.RemoveUploadsFunc(files)
		panic(err)
	}
	c.JSON(http.StatusCreated, comment)
}

func handleEditComment(c *gin.Context) {
	updating := CommentUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	commentId := parseCommentId(c)
	comment, err := ticket.EditCommentFunc(c.Param("ticketNumber"), commentId, updating.Text, updating.User, session.FindSession(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, comment)
}

func handleDeleteComment(c *gin.Context) {
	commentId := parseCommentId(c)
	if err := ticket.DeleteCommentFunc(c.Param("ticketNumber"), commentId, session.FindSession(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func parseCommentId(c *gin.Context) types.ID {
	id, err := types.ParseID(c.Param("commentId"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	return id
}
