package service

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/duongdat/filehub-backend/internal/auth/middleware"
	"github.com/duongdat/filehub-backend/internal/file/biz"
	apperrors "github.com/duongdat/filehub-backend/internal/pkg/errors"
	"github.com/duongdat/filehub-backend/internal/pkg/logger"
	"github.com/duongdat/filehub-backend/internal/pkg/response"
)

// FileService exposes the file lifecycle over HTTP
type FileService struct {
	fileUseCase *biz.FileUseCase
	logger      *logger.Logger
}

func NewFileService(fileUseCase *biz.FileUseCase, log *logger.Logger) *FileService {
	return &FileService{
		fileUseCase: fileUseCase,
		logger:      log,
	}
}

// RegisterRoutes binds the file endpoints; all require authentication
func (s *FileService) RegisterRoutes(rg *gin.RouterGroup) {
	files := rg.Group("/files")
	{
		files.POST("", s.Upload)
		files.GET("", s.ListMine)
		files.GET("/shared", s.ListShared)
		files.GET("/shared/department/:id", s.ListSharedByDepartment)
		files.GET("/shared/project/:id", s.ListSharedByProject)
		files.GET("/admin/all", s.ListAll)
		files.GET("/:id", s.Get)
		files.GET("/:id/download", s.Download)
		files.GET("/:id/preview", s.Preview)
		files.DELETE("/:id", s.Delete)
	}
}

type fileResponse struct {
	ID               int64   `json:"id"`
	OriginalFilename string  `json:"originalFilename"`
	Size             int64   `json:"size"`
	ContentType      string  `json:"contentType"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Tags             *string `json:"tags"`
	Visibility       string  `json:"visibility"`
	DownloadCount    int64   `json:"downloadCount"`
	Version          int     `json:"version"`
	UploaderID       int64   `json:"uploaderId"`
	DepartmentID     int64   `json:"departmentId"`
	ProjectID        *int64  `json:"projectId"`
	FileTypeID       int64   `json:"fileTypeId"`
	UploadedAt       string  `json:"uploadedAt"`
}

func toFileResponse(f *biz.File) fileResponse {
	return fileResponse{
		ID:               f.ID,
		OriginalFilename: f.OriginalFilename,
		Size:             f.Size,
		ContentType:      f.ContentType,
		Title:            f.Title,
		Description:      f.Description,
		Tags:             f.Tags,
		Visibility:       f.Visibility,
		DownloadCount:    f.DownloadCount,
		Version:          f.Version,
		UploaderID:       f.UploaderID,
		DepartmentID:     f.DepartmentID,
		ProjectID:        f.ProjectID,
		FileTypeID:       f.FileTypeID,
		UploadedAt:       f.UploadedAt.Format(time.RFC3339),
	}
}

func toFileResponses(files []*biz.File) []fileResponse {
	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	return out
}

// parseListQuery reads pagination, sorting and filter params
func parseListQuery(c *gin.Context) biz.ListQuery {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

	q := biz.ListQuery{
		Page:     page,
		Size:     size,
		SortBy:   c.DefaultQuery("sortBy", "uploadedAt"),
		Desc:     !strings.EqualFold(c.DefaultQuery("direction", "desc"), "asc"),
		Filename: c.Query("filename"),
	}

	if ct := c.Query("contentType"); ct != "" {
		q.ContentType = ct
	}
	if v, err := strconv.ParseInt(c.Query("departmentId"), 10, 64); err == nil {
		q.DepartmentID = &v
	}
	if v, err := strconv.ParseInt(c.Query("projectId"), 10, 64); err == nil {
		q.ProjectID = &v
	}
	if v, err := strconv.ParseInt(c.Query("fileTypeId"), 10, 64); err == nil {
		q.FileTypeID = &v
	}
	return q
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, "invalid id")
		return 0, false
	}
	return id, true
}

// Upload handles POST /files (multipart form)
func (s *FileService) Upload(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.ErrorWithCode(c, apperrors.ErrFileMissingField, "file")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.HandleError(c, err)
		return
	}
	defer src.Close()

	in := biz.UploadInput{
		Filename:    fileHeader.Filename,
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     src,
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Tags:        c.PostForm("tags"),
		Visibility:  c.PostForm("visibility"),
	}

	if v, err := strconv.ParseInt(c.PostForm("departmentId"), 10, 64); err == nil {
		in.DepartmentID = v
	}
	if v, err := strconv.ParseInt(c.PostForm("fileTypeId"), 10, 64); err == nil {
		in.FileTypeID = v
	}
	if v, err := strconv.ParseInt(c.PostForm("projectId"), 10, 64); err == nil {
		in.ProjectID = &v
	}
	if v, err := strconv.ParseInt(c.PostForm("departmentCategoryId"), 10, 64); err == nil {
		in.DepartmentCategoryID = &v
	}

	file, err := s.fileUseCase.Upload(c.Request.Context(), callerID, in)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, toFileResponse(file))
}

// ListMine handles GET /files
func (s *FileService) ListMine(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	q := parseListQuery(c)
	files, total, err := s.fileUseCase.ListMine(c.Request.Context(), callerID, q)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, response.NewPage(toFileResponses(files), q.Page, q.Size, total))
}

// ListShared handles GET /files/shared
func (s *FileService) ListShared(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	q := parseListQuery(c)
	files, total, err := s.fileUseCase.ListShared(c.Request.Context(), callerID, q)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, response.NewPage(toFileResponses(files), q.Page, q.Size, total))
}

// ListSharedByDepartment handles GET /files/shared/department/:id
func (s *FileService) ListSharedByDepartment(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}
	departmentID, ok := pathID(c)
	if !ok {
		return
	}

	q := parseListQuery(c)
	files, total, err := s.fileUseCase.ListSharedByDepartment(c.Request.Context(), callerID, departmentID, q)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, response.NewPage(toFileResponses(files), q.Page, q.Size, total))
}

// ListSharedByProject handles GET /files/shared/project/:id
func (s *FileService) ListSharedByProject(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}
	projectID, ok := pathID(c)
	if !ok {
		return
	}

	q := parseListQuery(c)
	files, total, err := s.fileUseCase.ListSharedByProject(c.Request.Context(), callerID, projectID, q)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, response.NewPage(toFileResponses(files), q.Page, q.Size, total))
}

// ListAll handles GET /files/admin/all
func (s *FileService) ListAll(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	q := parseListQuery(c)
	files, total, err := s.fileUseCase.ListAll(c.Request.Context(), callerID, q)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, response.NewPage(toFileResponses(files), q.Page, q.Size, total))
}

// Get handles GET /files/:id
func (s *FileService) Get(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}
	fileID, ok := pathID(c)
	if !ok {
		return
	}

	file, err := s.fileUseCase.Get(c.Request.Context(), callerID, fileID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toFileResponse(file))
}

// Download handles GET /files/:id/download
func (s *FileService) Download(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}
	fileID, ok := pathID(c)
	if !ok {
		return
	}

	result, err := s.fileUseCase.Download(c.Request.Context(), callerID, fileID)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	defer result.Content.Close()

	s.streamFile(c, result, "attachment")
}

// Preview handles GET /files/:id/preview, serving the content inline
func (s *FileService) Preview(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}
	fileID, ok := pathID(c)
	if !ok {
		return
	}

	result, err := s.fileUseCase.Preview(c.Request.Context(), callerID, fileID)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	defer result.Content.Close()

	s.streamFile(c, result, "inline")
}

func (s *FileService) streamFile(c *gin.Context, result *biz.DownloadResult, disposition string) {
	contentType := result.File.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Header("Content-Type", contentType)
	c.Header("Content-Length", strconv.FormatInt(result.File.Size, 10))
	c.Header("Content-Disposition", fmt.Sprintf(`%s; filename*=UTF-8''%s`,
		disposition, url.PathEscape(result.File.OriginalFilename)))
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, result.Content); err != nil {
		s.logger.Warn("file streaming interrupted",
			zap.Int64("file_id", result.File.ID),
			zap.Error(err))
	}
}

// Delete handles DELETE /files/:id
func (s *FileService) Delete(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}
	fileID, ok := pathID(c)
	if !ok {
		return
	}

	deleted, err := s.fileUseCase.Delete(c.Request.Context(), callerID, fileID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	if !deleted {
		response.SuccessWithMessage(c, "file already deleted", gin.H{"deleted": false})
		return
	}
	response.SuccessWithMessage(c, "file deleted", gin.H{"deleted": true})
}
