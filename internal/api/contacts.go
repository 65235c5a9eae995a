package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strings"

	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/models"

	"github.com/gin-gonic/gin"
)

type ContactHandler struct{}

func NewContactHandler() *ContactHandler {
	return &ContactHandler{}
}

func (h *ContactHandler) GetContacts(c *gin.Context) {
	var contacts []models.Contact
	if err := database.DB.Where("account_id = ?", AccountID(c)).
		Order("created_at DESC").
		Find(&contacts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Return empty array instead of null
	if contacts == nil {
		contacts = []models.Contact{}
	}

	c.JSON(http.StatusOK, contacts)
}

type ContactRequest struct {
	Name  string   `json:"name"`
	Phone string   `json:"phone"`
	Email string   `json:"email"`
	Tags  []string `json:"tags"`
	Notes string   `json:"notes"`
}

func (h *ContactHandler) CreateContact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if strings.TrimSpace(req.Phone) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}

	contact := models.Contact{
		AccountID: AccountID(c),
		Name:      req.Name,
		Phone:     strings.TrimSpace(req.Phone),
		Email:     req.Email,
		Tags:      NormalizeTags(req.Tags),
		Notes:     req.Notes,
	}

	if err := database.DB.Create(&contact).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create contact"})
		return
	}

	c.JSON(http.StatusCreated, contact)
}

func (h *ContactHandler) UpdateContact(c *gin.Context) {
	id := c.Param("id")

	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updateData := map[string]any{
		"name":  req.Name,
		"email": req.Email,
		"notes": req.Notes,
		"tags":  NormalizeTags(req.Tags),
	}
	if strings.TrimSpace(req.Phone) != "" {
		updateData["phone"] = strings.TrimSpace(req.Phone)
	}

	result := database.DB.Model(&models.Contact{}).
		Where("id = ? AND account_id = ?", id, AccountID(c)).
		Updates(updateData)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update contact"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Contact updated"})
}

func (h *ContactHandler) DeleteContact(c *gin.Context) {
	id := c.Param("id")

	result := database.DB.Where("id = ? AND account_id = ?", id, AccountID(c)).
		Delete(&models.Contact{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete contact"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Contact deleted"})
}

func (h *ContactHandler) ExportContacts(c *gin.Context) {
	var contacts []models.Contact
	if err := database.DB.Where("account_id = ?", AccountID(c)).
		Order("created_at DESC").
		Find(&contacts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"Name", "Phone", "Email", "Tags", "Created At"})
	for _, contact := range contacts {
		w.Write([]string{
			contact.Name, contact.Phone, contact.Email,
			strings.Join(DecodeTags(contact.Tags), ";"),
			contact.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	w.Flush()

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=contacts.csv")
	c.String(http.StatusOK, buf.String())
}

// NormalizeTags trims, drops empties and deduplicates while preserving order,
// then stores the set as a JSON array string.
func NormalizeTags(tags []string) string {
	seen := map[string]bool{}
	out := []string{}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	encoded, _ := json.Marshal(out)
	return string(encoded)
}

func DecodeTags(encoded string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(encoded), &tags); err != nil {
		return []string{}
	}
	return tags
}
