package server

import (
	"errors"
	"io"
	"strings"
	"unicode"

	"grapevine/internal/models"
	"grapevine/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed page/limit query parameters.
type Pagination struct {
	Page  int
	Limit int
}

const (
	maxPaginationLimit = 100
)

// parsePagination extracts page and limit query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	page := c.QueryInt("page", 1)
	if page <= 0 {
		page = 1
	}

	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	return Pagination{
		Page:  page,
		Limit: limit,
	}
}

// parseGossipListParams combines pagination with sortField/sortOrder/search
// query parameters. Unknown sort fields fall back at the repository level.
func parseGossipListParams(c *fiber.Ctx) repository.GossipListParams {
	page := parsePagination(c, 10)
	return repository.GossipListParams{
		Page:      page.Page,
		Limit:     page.Limit,
		SortField: c.Query("sortField", "created_at"),
		SortOrder: strings.ToLower(c.Query("sortOrder", "desc")),
		Search:    c.Query("search"),
		AuthorID:  uint(c.QueryInt("authorId", 0)),
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
// The error message is derived from the parameter name (e.g. "userId" ->
// "Invalid user ID", "gossipId" -> "Invalid gossip ID").
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	// Split on camelCase boundary before the trailing "Id" suffix.
	if strings.HasSuffix(param, "Id") {
		prefix := param[:len(param)-2]
		// Split camelCase prefix into words.
		words := splitCamel(prefix)
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// currentUserID reads the authenticated user's ID set by AuthRequired.
func currentUserID(c *fiber.Ctx) uint {
	return c.Locals("userID").(uint)
}

// formFile reads an optional multipart file field into memory. A missing
// field is not an error; size validation happens in the image service.
func formFile(c *fiber.Ctx, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, models.NewValidationError("Could not read uploaded file")
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, models.NewValidationError("Could not read uploaded file")
	}
	return buf, nil
}
