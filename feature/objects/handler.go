package objects

import (
	"bytes"
	"errors"
	"net/url"
	"strconv"

	"oss-manager/core/logger"
	"oss-manager/core/oss"
	"oss-manager/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// DefaultExpireMinutes is used for presigned URLs when no expiry is given.
const DefaultExpireMinutes = 15

// Base64Request is the body of an upload of text stored verbatim.
type Base64Request struct {
	Content string `json:"content"`
	Suffix  string `json:"suffix"`
}

// ComposeRequest is the body of a compose call.
type ComposeRequest struct {
	Sources []string `json:"sources"`
	Suffix  string   `json:"suffix"`
}

// Handler handles HTTP requests for buckets and objects.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the object storage routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/oss/buckets")
	group.Get("/:bucket", h.HandleBucketExists)
	group.Put("/:bucket", h.HandleCreateBucket)
	group.Delete("/:bucket", h.HandleRemoveBucket)
	group.Get("/:bucket/folders", h.HandleFolderExists)
	group.Get("/:bucket/catalog", h.HandleCatalog)
	group.Get("/:bucket/catalog/drift", h.HandleDrift)
	group.Get("/:bucket/catalog/reconcile", h.HandleReconcileReport)
	group.Post("/:bucket/catalog/reconcile", h.HandleReconcileApply)
	group.Post("/:bucket/objects", h.HandleUpload)
	group.Post("/:bucket/objects/base64", h.HandleUploadBase64)
	group.Post("/:bucket/objects/stream", h.HandleUploadStream)
	group.Post("/:bucket/compose", h.HandleCompose)
	// HEAD must be registered before GET, which also answers HEAD.
	group.Head("/:bucket/objects/*", h.HandleObjectExists)
	group.Get("/:bucket/objects/*", h.HandleDownload)
	group.Delete("/:bucket/objects/*", h.HandleRemoveObject)
	group.Get("/:bucket/presign/*", h.HandlePresign)
}

func objectParam(c *fiber.Ctx) string {
	raw := c.Params("*")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

// fail maps a facade error to a response. Only invalid arguments reach here.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	l := logger.WithRayID(h.service.logger, c)
	if errors.Is(err, oss.ErrInvalidArgument) {
		l.Info("Rejected request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	l.Error("Request failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// HandleBucketExists reports whether a bucket exists.
// @Summary Bucket Exists
// @Description Checks whether the bucket exists. Remote failures report false.
// @Tags buckets
// @Produce json
// @Param bucket path string true "Bucket name"
// @Success 200 {object} map[string]interface{} "Existence"
// @Router /oss/buckets/{bucket} [get]
func (h *Handler) HandleBucketExists(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	ok, err := h.service.Client().BucketExists(c.Context(), bucket)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"bucket": bucket, "exists": ok})
}

// HandleCreateBucket creates a bucket if it does not exist.
// @Summary Create Bucket
// @Description Creates the bucket. Succeeds without changes when it already exists.
// @Tags buckets
// @Produce json
// @Param bucket path string true "Bucket name"
// @Success 200 {object} map[string]interface{} "Created"
// @Failure 500 {object} map[string]string "Creation failed"
// @Router /oss/buckets/{bucket} [put]
func (h *Handler) HandleCreateBucket(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	ok, err := h.service.Client().CreateBucket(c.Context(), bucket)
	if err != nil {
		return h.fail(c, err)
	}
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create bucket", "bucket": bucket})
	}
	return c.JSON(fiber.Map{"bucket": bucket, "created": true})
}

// HandleRemoveBucket removes a bucket if it exists.
// @Summary Remove Bucket
// @Description Removes the bucket. Succeeds without changes when it does not exist.
// @Tags buckets
// @Produce json
// @Param bucket path string true "Bucket name"
// @Success 200 {object} map[string]interface{} "Removed"
// @Failure 500 {object} map[string]string "Removal failed"
// @Router /oss/buckets/{bucket} [delete]
func (h *Handler) HandleRemoveBucket(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	ok, err := h.service.Client().RemoveBucket(c.Context(), bucket)
	if err != nil {
		return h.fail(c, err)
	}
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to remove bucket", "bucket": bucket})
	}
	return c.JSON(fiber.Map{"bucket": bucket, "removed": true})
}

// HandleFolderExists reports whether a folder exists under a prefix.
// @Summary Folder Exists
// @Description Checks whether a non-recursive listing under the prefix contains a folder.
// @Tags buckets
// @Produce json
// @Param bucket path string true "Bucket name"
// @Param prefix query string false "Folder prefix"
// @Success 200 {object} map[string]interface{} "Existence"
// @Router /oss/buckets/{bucket}/folders [get]
func (h *Handler) HandleFolderExists(c *fiber.Ctx) error {
	bucket, prefix := c.Params("bucket"), c.Query("prefix")
	ok, err := h.service.Client().FolderExists(c.Context(), bucket, prefix)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"bucket": bucket, "prefix": prefix, "exists": ok})
}

// HandleCatalog lists catalogued objects.
// @Summary List Catalog
// @Description Lists the objects recorded in the catalog for the bucket, newest first.
// @Tags objects
// @Produce json
// @Param bucket path string true "Bucket name"
// @Param limit query int false "Maximum entries" default(100)
// @Success 200 {object} map[string]interface{} "Catalog"
// @Failure 500 {object} map[string]string "Catalog unavailable"
// @Router /oss/buckets/{bucket}/catalog [get]
func (h *Handler) HandleCatalog(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	entries, enabled, err := h.service.Catalog(c.Context(), bucket, c.QueryInt("limit", 100))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"bucket": bucket, "enabled": enabled, "entries": entries})
}

// ReconcileRequest selects the catalog corrections to apply.
type ReconcileRequest struct {
	Prefix string `json:"prefix"`
	Forget bool   `json:"forget"`
	Record bool   `json:"record"`
	Resize bool   `json:"resize"`
}

// failReconcile maps reconcile errors to a response.
func (h *Handler) failReconcile(c *fiber.Ctx, bucket string, err error) error {
	switch {
	case errors.Is(err, reconcile.ErrCatalogDisabled):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "catalog is disabled"})
	case errors.Is(err, reconcile.ErrBucketNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "bucket not found", "bucket": bucket})
	}
	return h.fail(c, err)
}

func (h *Handler) reconcile(c *fiber.Ctx, bucket, prefix string, opts reconcile.Options) error {
	plan, executed, err := h.service.Reconcile(c.Context(), bucket, prefix, opts)
	if err != nil {
		return h.failReconcile(c, bucket, err)
	}
	return c.JSON(fiber.Map{"bucket": bucket, "plan": plan, "executed": executed})
}

// HandleReconcileReport compares the catalog with the bucket, or with a
// single object when path is given.
// @Summary Reconcile Report
// @Description Compares catalog entries with the objects in the bucket without changing anything.
// @Tags catalog
// @Produce json
// @Param bucket path string true "Bucket name"
// @Param prefix query string false "Path prefix"
// @Param path query string false "Single object path"
// @Success 200 {object} map[string]interface{} "Reconcile plan or single result"
// @Failure 404 {object} map[string]string "Bucket not found"
// @Failure 503 {object} map[string]string "Catalog disabled"
// @Router /oss/buckets/{bucket}/catalog/reconcile [get]
func (h *Handler) HandleReconcileReport(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	if path := c.Query("path"); path != "" {
		result, err := h.service.ReconcilePath(c.Context(), bucket, path)
		if err != nil {
			return h.failReconcile(c, bucket, err)
		}
		return c.JSON(fiber.Map{"bucket": bucket, "result": result})
	}
	return h.reconcile(c, bucket, c.Query("prefix"), reconcile.Options{})
}

// HandleDrift lists the paths where the catalog and the bucket disagree.
// @Summary Catalog Drift
// @Description Lists catalog entries without an object, objects without an entry and size mismatches.
// @Tags catalog
// @Produce json
// @Param bucket path string true "Bucket name"
// @Param prefix query string false "Path prefix"
// @Success 200 {object} map[string]interface{} "Drifted paths"
// @Failure 404 {object} map[string]string "Bucket not found"
// @Failure 503 {object} map[string]string "Catalog disabled"
// @Router /oss/buckets/{bucket}/catalog/drift [get]
func (h *Handler) HandleDrift(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	drift, err := h.service.Drift(c.Context(), bucket, c.Query("prefix"))
	if err != nil {
		return h.failReconcile(c, bucket, err)
	}
	return c.JSON(fiber.Map{"bucket": bucket, "drift": drift})
}

// HandleReconcileApply corrects the catalog from the bucket contents.
// @Summary Reconcile Apply
// @Description Applies the selected catalog corrections. Storage is never modified.
// @Tags catalog
// @Accept json
// @Produce json
// @Param bucket path string true "Bucket name"
// @Param request body ReconcileRequest true "Corrections to apply"
// @Success 200 {object} map[string]interface{} "Applied plan"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 404 {object} map[string]string "Bucket not found"
// @Failure 503 {object} map[string]string "Catalog disabled"
// @Router /oss/buckets/{bucket}/catalog/reconcile [post]
func (h *Handler) HandleReconcileApply(c *fiber.Ctx) error {
	var req ReconcileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	opts := reconcile.Options{
		DoForget:  req.Forget,
		DoRecord:  req.Record,
		DoResize:  req.Resize,
		Confirmed: true,
	}
	return h.reconcile(c, c.Params("bucket"), req.Prefix, opts)
}

func uploaded(c *fiber.Ctx, bucket, name string) error {
	if name == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upload failed", "bucket": bucket})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"bucket": bucket, "path": name})
}

// HandleUpload stores the request body as a new object.
// @Summary Upload Bytes
// @Description Stores the raw request body as <id>.<suffix>.
// @Tags objects
// @Accept octet-stream
// @Produce json
// @Param bucket path string true "Bucket name"
// @Param suffix query string true "Object suffix without dot"
// @Success 201 {object} map[string]string "Stored path"
// @Failure 400 {object} map[string]string "Invalid argument"
// @Failure 500 {object} map[string]string "Upload failed"
// @Router /oss/buckets/{bucket}/objects [post]
func (h *Handler) HandleUpload(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	body := c.Body()
	if body == nil {
		body = []byte{}
	}
	name, err := h.service.UploadBytes(c.Context(), bucket, body, c.Query("suffix"))
	if err != nil {
		return h.fail(c, err)
	}
	return uploaded(c, bucket, name)
}

// HandleUploadBase64 stores the text of a JSON body verbatim.
// @Summary Upload Base64 Text
// @Description Stores the UTF-8 bytes of content as <id>.<suffix>. The content is not decoded.
// @Tags objects
// @Accept json
// @Produce json
// @Param bucket path string true "Bucket name"
// @Param request body Base64Request true "Content and suffix"
// @Success 201 {object} map[string]string "Stored path"
// @Failure 400 {object} map[string]string "Invalid argument"
// @Failure 500 {object} map[string]string "Upload failed"
// @Router /oss/buckets/{bucket}/objects/base64 [post]
func (h *Handler) HandleUploadBase64(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	var req Base64Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	name, err := h.service.UploadBase64(c.Context(), bucket, req.Content, req.Suffix)
	if err != nil {
		return h.fail(c, err)
	}
	return uploaded(c, bucket, name)
}

// HandleUploadStream stores the request body as <id>.<name>.
// @Summary Upload Stream
// @Description Stores the request body as <id>.<name>; the content type follows the name.
// @Tags objects
// @Accept octet-stream
// @Produce json
// @Param bucket path string true "Bucket name"
// @Param name query string true "Name appended after the generated id"
// @Success 201 {object} map[string]string "Stored path"
// @Failure 400 {object} map[string]string "Invalid argument"
// @Failure 500 {object} map[string]string "Upload failed"
// @Router /oss/buckets/{bucket}/objects/stream [post]
func (h *Handler) HandleUploadStream(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	name, err := h.service.UploadStream(c.Context(), bucket, bytes.NewReader(c.Body()), c.Query("name"))
	if err != nil {
		return h.fail(c, err)
	}
	return uploaded(c, bucket, name)
}

// HandleCompose concatenates existing objects into a new one.
// @Summary Compose Objects
// @Description Concatenates the sources, in order, into <id>.<suffix>. Every source must exist.
// @Tags objects
// @Accept json
// @Produce json
// @Param bucket path string true "Bucket name"
// @Param request body ComposeRequest true "Sources and suffix"
// @Success 201 {object} map[string]string "Stored path"
// @Failure 400 {object} map[string]string "Invalid argument"
// @Failure 500 {object} map[string]string "Missing source or compose failed"
// @Router /oss/buckets/{bucket}/compose [post]
func (h *Handler) HandleCompose(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	var req ComposeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	name, err := h.service.Compose(c.Context(), bucket, req.Sources, req.Suffix)
	if err != nil {
		return h.fail(c, err)
	}
	if name == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "compose failed or a source object is missing",
			"sources": req.Sources,
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"bucket": bucket, "path": name})
}

// HandleObjectExists answers HEAD for an object.
// @Summary Object Exists
// @Description Returns 200 with size and type headers when the object exists, 404 otherwise.
// @Tags objects
// @Param bucket path string true "Bucket name"
// @Param object path string true "Object path"
// @Success 200 "Exists"
// @Failure 404 "Not found"
// @Router /oss/buckets/{bucket}/objects/{object} [head]
func (h *Handler) HandleObjectExists(c *fiber.Ctx) error {
	bucket, object := c.Params("bucket"), objectParam(c)
	ok, err := h.service.Client().ObjectExists(c.Context(), bucket, object)
	if err != nil {
		return h.fail(c, err)
	}
	if !ok {
		return c.SendStatus(fiber.StatusNotFound)
	}
	if info, err := h.service.Stat(c.Context(), bucket, object); err == nil {
		c.Set(fiber.HeaderContentType, info.ContentType)
		c.Set("X-Object-Size", strconv.FormatInt(info.Size, 10))
		c.Set(fiber.HeaderETag, info.ETag)
	}
	return c.SendStatus(fiber.StatusOK)
}

// HandleDownload returns an object or a byte range of it.
// @Summary Download Object
// @Description Returns the object. With offset/length only that byte range is returned.
// @Tags objects
// @Produce octet-stream
// @Param bucket path string true "Bucket name"
// @Param object path string true "Object path"
// @Param offset query int false "Byte offset"
// @Param length query int false "Byte count, required with offset"
// @Success 200 {file} binary "Object content"
// @Failure 400 {object} map[string]string "Invalid argument"
// @Failure 404 {object} map[string]string "Missing or unreadable"
// @Router /oss/buckets/{bucket}/objects/{object} [get]
func (h *Handler) HandleDownload(c *fiber.Ctx) error {
	bucket, object := c.Params("bucket"), objectParam(c)
	client := h.service.Client()

	var data []byte
	var err error
	if c.Query("offset") != "" || c.Query("length") != "" {
		offset, perr := strconv.ParseInt(c.Query("offset", "0"), 10, 64)
		length, lerr := strconv.ParseInt(c.Query("length", "0"), 10, 64)
		if perr != nil || lerr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "offset and length must be integers"})
		}
		data, err = client.GetObjectRange(c.Context(), bucket, object, offset, length)
	} else {
		data, err = client.GetObject(c.Context(), bucket, object)
	}
	if err != nil {
		return h.fail(c, err)
	}
	if data == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "object not found or unreadable", "path": object})
	}

	c.Set(fiber.HeaderContentType, oss.ContentTypeFor(object))
	return c.Send(data)
}

// HandleRemoveObject deletes an object.
// @Summary Remove Object
// @Description Deletes the object. 404 when there is nothing to delete, 500 when deletion failed.
// @Tags objects
// @Produce json
// @Param bucket path string true "Bucket name"
// @Param object path string true "Object path"
// @Success 200 {object} map[string]interface{} "Removed"
// @Failure 404 {object} map[string]string "Not found"
// @Failure 500 {object} map[string]string "Removal failed"
// @Router /oss/buckets/{bucket}/objects/{object} [delete]
func (h *Handler) HandleRemoveObject(c *fiber.Ctx) error {
	bucket, object := c.Params("bucket"), objectParam(c)
	removed, found, err := h.service.Remove(c.Context(), bucket, object)
	if err != nil {
		return h.fail(c, err)
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "object not found", "path": object})
	}
	if !removed {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to remove object", "path": object})
	}
	return c.JSON(fiber.Map{"bucket": bucket, "path": object, "removed": true})
}

// HandlePresign returns a presigned URL for an object.
// @Summary Presign Object URL
// @Description Returns a time-limited URL granting GET or PUT on one object.
// @Tags objects
// @Produce json
// @Param bucket path string true "Bucket name"
// @Param object path string true "Object path"
// @Param method query string false "get or put" default(get)
// @Param expire query int false "Expiry in minutes" default(15)
// @Success 200 {object} map[string]interface{} "Presigned URL"
// @Failure 400 {object} map[string]string "Invalid argument"
// @Failure 500 {object} map[string]string "Signing failed"
// @Router /oss/buckets/{bucket}/presign/{object} [get]
func (h *Handler) HandlePresign(c *fiber.Ctx) error {
	bucket, object := c.Params("bucket"), objectParam(c)
	expire := c.QueryInt("expire", DefaultExpireMinutes)
	method := c.Query("method", "get")
	client := h.service.Client()

	var u string
	var err error
	switch method {
	case "get":
		u, err = client.PresignedGetURL(c.Context(), bucket, object, expire)
	case "put":
		u, err = client.PresignedPutURL(c.Context(), bucket, object, expire)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "method must be get or put"})
	}
	if err != nil {
		return h.fail(c, err)
	}
	if u == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to presign URL", "path": object})
	}
	return c.JSON(fiber.Map{"url": u, "method": method, "expires_in_minutes": expire})
}
