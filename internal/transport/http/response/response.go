package response

import "github.com/gin-gonic/gin"

const (
	CodeOK                 = 0
	CodeBadRequest         = 40000
	CodeNoFileSelected     = 40001
	CodeNotAnImage         = 40002
	CodeImageNotFound      = 40401
	CodeSubmissionConflict = 40901
	CodeStaleSubmission    = 40902
	CodeUploadTooLarge     = 41300
	CodeInternalServer     = 50000
	CodeClassifierNetwork  = 50201
	CodeClassifierProtocol = 50202
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// ErrorWithData is Error that also carries a payload, such as the unchanged
// state after a rejected upload.
func ErrorWithData(c *gin.Context, httpStatus, code int, message string, data interface{}) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}
