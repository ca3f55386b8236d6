package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openlearnhq/campdir/internal/config"
	"github.com/openlearnhq/campdir/internal/domain/bootcamp"
	"github.com/openlearnhq/campdir/internal/domain/course"
	"github.com/openlearnhq/campdir/internal/domain/user"
	"github.com/openlearnhq/campdir/internal/geocode"
	"github.com/openlearnhq/campdir/internal/http/middlewares"
	"github.com/openlearnhq/campdir/internal/query"
)

// Mean radius of the earth in kilometers, used to convert a search
// distance into radians for $centerSphere.
const earthRadiusKm = 6378.0

type BootcampsStore interface {
	List(ctx context.Context, q query.ListQuery) ([]bootcamp.Bootcamp, int64, error)
	GetByID(ctx context.Context, id string) (bootcamp.Bootcamp, error)
	Create(ctx context.Context, b bootcamp.Bootcamp) (bootcamp.Bootcamp, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) (bootcamp.Bootcamp, error)
	Delete(ctx context.Context, id string) error
	WithinRadius(ctx context.Context, lng, lat, radians float64) ([]bootcamp.Bootcamp, error)
	SetPhoto(ctx context.Context, id primitive.ObjectID, filename string) error
}

type CourseLister interface {
	ListByBootcamps(ctx context.Context, ids []primitive.ObjectID) ([]course.Course, error)
}

type PhotoStore interface {
	Put(name string, r io.Reader) error
}

type BootcampsHandler struct {
	repo     BootcampsStore
	courses  CourseLister
	geocoder geocode.Geocoder
	photos   PhotoStore
	maxPhoto int64
}

func NewBootcampsHandler(repo BootcampsStore, courses CourseLister, geocoder geocode.Geocoder, photos PhotoStore, maxPhoto int64) *BootcampsHandler {
	return &BootcampsHandler{
		repo:     repo,
		courses:  courses,
		geocoder: geocoder,
		photos:   photos,
		maxPhoto: maxPhoto,
	}
}

// bootcampView carries the optional inlined course documents that the
// list and detail endpoints attach.
type bootcampView struct {
	bootcamp.Bootcamp
	Courses []course.Course `json:"courses,omitempty"`
}

func (h *BootcampsHandler) List(ctx *gin.Context) {
	q := query.Parse(ctx.Request.URL.Query())

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	items, total, err := h.repo.List(cctx, q)

	if err != nil {
		RespondStoreError(ctx, err, "bootcamps")
		return
	}

	views, err := h.attachCourses(cctx, items)

	if err != nil {
		RespondStoreError(ctx, err, "bootcamps")
		return
	}

	RespondList(ctx, views, len(views), q.Paginate(total))
}

func (h *BootcampsHandler) GetByID(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	b, err := h.repo.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		RespondStoreError(ctx, err, "bootcamp")
		return
	}

	views, err := h.attachCourses(cctx, []bootcamp.Bootcamp{b})

	if err != nil {
		RespondStoreError(ctx, err, "bootcamp")
		return
	}

	RespondOKCached(ctx, views[0])
}

func (h *BootcampsHandler) Create(ctx *gin.Context) {
	var req bootcamp.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	caller, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(8 * time.Second)
	defer cancel()

	loc, err := h.resolveLocation(cctx, req.Address)

	if err != nil {
		if errors.Is(err, geocode.ErrNoResults) {
			RespondBadRequest(ctx, "Address could not be geocoded", nil)
			return
		}

		RespondInternal(ctx, "Geocoding failed")
		return
	}

	created, err := h.repo.Create(cctx, bootcamp.Bootcamp{
		Name:        req.Name,
		Description: req.Description,
		Website:     req.Website,
		Location:    loc,
		User:        caller.ID,
	})

	if err != nil {
		RespondStoreError(ctx, err, "bootcamp")
		return
	}

	RespondCreated(ctx, created)
}

func (h *BootcampsHandler) Update(ctx *gin.Context) {
	var req bootcamp.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(8 * time.Second)
	defer cancel()

	existing, err := h.repo.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		RespondStoreError(ctx, err, "bootcamp")
		return
	}

	if !callerMayModify(ctx, existing.User) {
		RespondForbidden(ctx, "Not authorized to update this bootcamp")
		return
	}

	fields := map[string]interface{}{}

	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Website != nil {
		fields["website"] = *req.Website
	}
	if req.Address != nil {
		loc, err := h.resolveLocation(cctx, *req.Address)

		if err != nil {
			if errors.Is(err, geocode.ErrNoResults) {
				RespondBadRequest(ctx, "Address could not be geocoded", nil)
				return
			}

			RespondInternal(ctx, "Geocoding failed")
			return
		}

		fields["location"] = loc
	}

	if len(fields) == 0 {
		RespondBadRequest(ctx, "No fields to update", nil)
		return
	}

	updated, err := h.repo.Update(cctx, ctx.Param("id"), fields)

	if err != nil {
		RespondStoreError(ctx, err, "bootcamp")
		return
	}

	RespondOK(ctx, updated)
}

func (h *BootcampsHandler) Delete(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	existing, err := h.repo.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		RespondStoreError(ctx, err, "bootcamp")
		return
	}

	if !callerMayModify(ctx, existing.User) {
		RespondForbidden(ctx, "Not authorized to delete this bootcamp")
		return
	}

	err = h.repo.Delete(cctx, ctx.Param("id"))

	if err != nil {
		RespondStoreError(ctx, err, "bootcamp")
		return
	}

	RespondOK(ctx, gin.H{})
}

// GetInRadius finds bootcamps within a distance (km) of a zipcode. The
// zipcode is geocoded first, then the distance is converted to radians
// for a sphere query.
func (h *BootcampsHandler) GetInRadius(ctx *gin.Context) {
	zipcode := ctx.Param("zipcode")

	distance, err := strconv.ParseFloat(ctx.Param("distance"), 64)

	if err != nil || distance <= 0 {
		RespondBadRequest(ctx, "distance must be a positive number of kilometers", nil)
		return
	}

	cctx, cancel := config.WithTimeout(8 * time.Second)
	defer cancel()

	loc, err := h.geocoder.Geocode(cctx, zipcode)

	if err != nil {
		if errors.Is(err, geocode.ErrNoResults) {
			RespondBadRequest(ctx, "Zipcode could not be geocoded", nil)
			return
		}

		RespondInternal(ctx, "Geocoding failed")
		return
	}

	radians := distance / earthRadiusKm

	items, err := h.repo.WithinRadius(cctx, loc.Lng, loc.Lat, radians)

	if err != nil {
		RespondStoreError(ctx, err, "bootcamps")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(items),
		"data":    items,
	})
}

// UploadPhoto accepts a multipart image upload for a bootcamp and
// stores it under a deterministic name derived from the bootcamp id.
func (h *BootcampsHandler) UploadPhoto(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	existing, err := h.repo.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		RespondStoreError(ctx, err, "bootcamp")
		return
	}

	if !callerMayModify(ctx, existing.User) {
		RespondForbidden(ctx, "Not authorized to update this bootcamp")
		return
	}

	header, err := ctx.FormFile("file")

	if err != nil {
		RespondBadRequest(ctx, "Please upload a file", nil)
		return
	}

	if err := h.validatePhoto(header); err != nil {
		RespondBadRequest(ctx, err.Error(), nil)
		return
	}

	src, err := header.Open()

	if err != nil {
		RespondInternal(ctx, "Could not read upload")
		return
	}

	defer src.Close()

	filename := "photo_" + existing.ID.Hex() + strings.ToLower(filepath.Ext(header.Filename))

	if err := h.photos.Put(filename, src); err != nil {
		RespondError(ctx, http.StatusInternalServerError, "upload_failed", "Could not store upload", nil)
		return
	}

	if err := h.repo.SetPhoto(cctx, existing.ID, filename); err != nil {
		RespondStoreError(ctx, err, "bootcamp")
		return
	}

	RespondOK(ctx, filename)
}

func (h *BootcampsHandler) validatePhoto(header *multipart.FileHeader) error {
	if h.maxPhoto > 0 && header.Size > h.maxPhoto {
		return errors.New("Please upload an image less than " + strconv.FormatInt(h.maxPhoto, 10) + " bytes")
	}

	ct := header.Header.Get("Content-Type")

	if !strings.HasPrefix(ct, "image/") {
		return errors.New("Please upload an image file")
	}

	return nil
}

func (h *BootcampsHandler) resolveLocation(ctx context.Context, address string) (*bootcamp.Location, error) {
	loc, err := h.geocoder.Geocode(ctx, address)

	if err != nil {
		return nil, err
	}

	return &bootcamp.Location{
		Type:             "Point",
		Coordinates:      []float64{loc.Lng, loc.Lat},
		FormattedAddress: loc.FormattedAddress,
		City:             loc.City,
		Zipcode:          loc.Zipcode,
	}, nil
}

func (h *BootcampsHandler) attachCourses(ctx context.Context, items []bootcamp.Bootcamp) ([]bootcampView, error) {
	views := make([]bootcampView, len(items))
	ids := make([]primitive.ObjectID, len(items))

	for i, b := range items {
		views[i] = bootcampView{Bootcamp: b}
		ids[i] = b.ID
	}

	if len(ids) == 0 {
		return views, nil
	}

	courses, err := h.courses.ListByBootcamps(ctx, ids)

	if err != nil {
		return nil, err
	}

	byBootcamp := make(map[primitive.ObjectID][]course.Course, len(items))

	for _, c := range courses {
		byBootcamp[c.Bootcamp] = append(byBootcamp[c.Bootcamp], c)
	}

	for i := range views {
		views[i].Courses = byBootcamp[views[i].ID]
	}

	return views, nil
}

// callerMayModify implements the ownership rule shared by all owned
// resources: admins may touch anything, everyone else only their own
// records.
func callerMayModify(ctx *gin.Context, owner primitive.ObjectID) bool {
	caller, ok := middlewares.UserFromContext(ctx)

	if !ok {
		return false
	}

	if caller.Role == user.RoleAdmin {
		return true
	}

	return caller.ID == owner
}
