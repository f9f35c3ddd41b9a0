package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/IgorGrieder/atalho/internal/config"
	"github.com/IgorGrieder/atalho/internal/constants"
	"github.com/IgorGrieder/atalho/internal/infrastructure/logger"
	appvalidation "github.com/IgorGrieder/atalho/internal/infrastructure/validation"
	"github.com/IgorGrieder/atalho/internal/processing/links"
	"github.com/IgorGrieder/atalho/internal/transport/http/middleware"
	"github.com/IgorGrieder/atalho/pkg/httputils"
	"github.com/go-playground/validator/v10"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

type LinksHandler struct {
	cfg      *config.Config
	svc      *links.Service
	recorder *links.Recorder
}

func NewLinksHandler(cfg *config.Config, svc *links.Service, recorder *links.Recorder) *LinksHandler {
	return &LinksHandler{
		cfg:      cfg,
		svc:      svc,
		recorder: recorder,
	}
}

type createLinkRequest struct {
	OriginalURL string     `json:"originalUrl" validate:"required,notblank,http_url"`
	CustomAlias string     `json:"customAlias,omitempty" validate:"omitempty,alias"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty" validate:"omitempty,future"`
}

type linkResponse struct {
	ID          string     `json:"id"`
	OriginalURL string     `json:"originalUrl"`
	ShortCode   string     `json:"shortCode"`
	ShortURL    string     `json:"shortUrl"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

func (h *LinksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}
	if err := appvalidation.Validate(req); err != nil {
		apiErr := constants.ErrInvalidRequestBody
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			for _, e := range validationErrs {
				if e.Field() == "originalUrl" {
					apiErr = constants.ErrInvalidURL
					break
				}
				if e.Field() == "customAlias" {
					apiErr = constants.ErrInvalidAlias
					break
				}
				if e.Field() == "expiresAt" && e.Tag() == "future" {
					apiErr = apiErr.WithMessage("expiresAt must be in the future")
					break
				}
			}
		}
		httputils.WriteAPIError(w, r, apiErr)
		return
	}

	link, err := h.svc.CreateLink(r.Context(), links.CreateLinkInput{
		URL:         req.OriginalURL,
		CustomAlias: req.CustomAlias,
		ExpiresAt:   req.ExpiresAt,
		OwnerID:     middleware.OwnerID(r),
	})
	if err != nil {
		switch err {
		case links.ErrInvalidURL:
			httputils.WriteAPIError(w, r, constants.ErrInvalidURL)
		case links.ErrInvalidAlias:
			httputils.WriteAPIError(w, r, constants.ErrInvalidAlias)
		case links.ErrAliasTaken:
			httputils.WriteAPIError(w, r, constants.ErrAliasTaken)
		default:
			logger.Error("failed to create link", zap.Error(err))
			httputils.WriteAPIError(w, r, constants.ErrInternalError)
		}
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessLinkCreated, h.mapLink(link))
}

type listLinkItem struct {
	linkResponse
	TotalClicks int64 `json:"totalClicks"`
	IsExpired   bool  `json:"isExpired"`
}

type listLinksResponse struct {
	Links       []listLinkItem `json:"links"`
	CurrentPage int            `json:"currentPage"`
	TotalPages  int            `json:"totalPages"`
	TotalLinks  int64          `json:"totalLinks"`
}

func (h *LinksHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parseIntParam(q.Get("page"), 1)
	limit := parseIntParam(q.Get("limit"), 10)

	result, err := h.svc.List(r.Context(), links.ListInput{
		OwnerID: middleware.OwnerID(r),
		Page:    page,
		Limit:   limit,
		Search:  q.Get("search"),
	})
	if err != nil {
		logger.Error("failed to list links", zap.Error(err))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
		return
	}

	if limit < 1 {
		limit = 10
	}
	totalPages := int((result.Total + int64(limit) - 1) / int64(limit))

	items := make([]listLinkItem, 0, len(result.Links))
	for _, l := range result.Links {
		items = append(items, listLinkItem{
			linkResponse: h.mapLink(&l.Link),
			TotalClicks:  l.TotalClicks,
			IsExpired:    l.IsExpired,
		})
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessLinksFound, listLinksResponse{
		Links:       items,
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalLinks:  result.Total,
	})
}

// Redirect serves GET /{slug}. The redirect is written before the click is
// handed to the recorder, so analytics latency and analytics failures can
// never delay or break the response.
func (h *LinksHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	link, err := h.svc.Resolve(r.Context(), slug)
	if err != nil {
		switch err {
		case links.ErrNotFound:
			http.NotFound(w, r)
		case links.ErrExpired:
			w.WriteHeader(http.StatusGone)
		default:
			logger.Error("failed to resolve slug", zap.Error(err), zap.String("slug", slug))
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Location", link.URL)
	w.WriteHeader(h.cfg.Shortener.RedirectStatus)

	h.recorder.Record(link.ID, clientIP(r), r.UserAgent())
}

type statsResponse struct {
	ClicksOverTime     []links.DailyCount `json:"clicksOverTime"`
	DeviceBrowserStats deviceBrowserStats `json:"deviceBrowserStats"`
}

type deviceBrowserStats struct {
	Browsers map[string]int64 `json:"browsers"`
	OS       map[string]int64 `json:"os"`
	Devices  map[string]int64 `json:"devices"`
}

func (h *LinksHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	stats, err := h.svc.GetStats(r.Context(), id, middleware.OwnerID(r))
	if err != nil {
		switch err {
		case links.ErrNotFound:
			httputils.WriteAPIError(w, r, constants.ErrLinkNotFound)
		default:
			logger.Error("failed to fetch stats", zap.Error(err), zap.String("link_id", id))
			httputils.WriteAPIError(w, r, constants.ErrInternalError)
		}
		return
	}

	clicksOverTime := stats.ClicksOverTime
	if clicksOverTime == nil {
		clicksOverTime = []links.DailyCount{}
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessStatsFound, statsResponse{
		ClicksOverTime: clicksOverTime,
		DeviceBrowserStats: deviceBrowserStats{
			Browsers: stats.Browsers,
			OS:       stats.OS,
			Devices:  stats.Devices,
		},
	})
}

type qrResponse struct {
	QRCodeDataURL string `json:"qrCodeDataURL"`
}

func (h *LinksHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	link, err := h.svc.GetLinkForOwner(r.Context(), id, middleware.OwnerID(r))
	if err != nil {
		switch err {
		case links.ErrNotFound:
			httputils.WriteAPIError(w, r, constants.ErrLinkNotFound)
		default:
			logger.Error("failed to fetch link for qr", zap.Error(err), zap.String("link_id", id))
			httputils.WriteAPIError(w, r, constants.ErrInternalError)
		}
		return
	}

	png, err := qrcode.Encode(h.shortURL(link.Slug), qrcode.Medium, 256)
	if err != nil {
		logger.Error("failed to encode qr code", zap.Error(err), zap.String("link_id", id))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessQRGenerated, qrResponse{
		QRCodeDataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	})
}

func (h *LinksHandler) mapLink(link *links.Link) linkResponse {
	return linkResponse{
		ID:          link.ID,
		OriginalURL: link.URL,
		ShortCode:   link.Slug,
		ShortURL:    h.shortURL(link.Slug),
		CreatedAt:   link.CreatedAt,
		ExpiresAt:   link.ExpiresAt,
	}
}

func (h *LinksHandler) shortURL(slug string) string {
	return strings.TrimRight(h.cfg.Shortener.BaseURL, "/") + "/" + slug
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, ok := strings.Cut(xff, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
