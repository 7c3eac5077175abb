package orderControllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/koulibalyamadou10/braprime-backend/models"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"
)

// GET /admin/orders/export
func ExportOrdersToExcel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var orders []models.Order
		if err := db.Order("created_at DESC").Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}

		file := xlsx.NewFile()
		sheet, err := file.AddSheet("Orders")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel sheet"})
			return
		}

		// Header row
		headers := []string{
			"OrderRef", "OwnerID", "Vendor", "Status", "PaymentMethod", "PaymentStatus",
			"Total", "Tax", "DeliveryFee", "GrandTotal", "DeliveryMethod",
			"DeliveryAddress", "Driver", "Items", "EstimatedDelivery", "CreatedAt",
		}
		headerRow := sheet.AddRow()
		for _, h := range headers {
			headerRow.AddCell().SetValue(h)
		}

		// Data rows
		for _, o := range orders {
			row := sheet.AddRow()

			row.AddCell().SetValue(o.OrderRef)
			row.AddCell().SetValue(o.OwnerID)
			row.AddCell().SetValue(o.VendorName)
			row.AddCell().SetValue(string(o.Status))
			row.AddCell().SetValue(o.PaymentMethod)
			row.AddCell().SetValue(string(o.PaymentStatus))
			row.AddCell().SetValue(o.Total)
			row.AddCell().SetValue(o.Tax)
			row.AddCell().SetValue(o.DeliveryFee)
			row.AddCell().SetValue(o.GrandTotal)
			row.AddCell().SetValue(string(o.DeliveryMethod))
			row.AddCell().SetValue(o.DeliveryAddress)
			row.AddCell().SetValue(o.DriverName)

			var lines []string
			for _, item := range o.Items {
				lines = append(lines, item.Name+" x"+strconv.Itoa(item.Quantity))
			}
			row.AddCell().SetValue(strings.Join(lines, ", "))

			row.AddCell().SetValue(o.EstimatedDelivery.Format("2006-01-02 15:04:05"))
			row.AddCell().SetValue(o.CreatedAt.Format("2006-01-02 15:04:05"))
		}

		// Set response headers for download
		c.Header("Content-Disposition", "attachment; filename=orders.xlsx")
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Transfer-Encoding", "binary")
		c.Header("Expires", "0")

		// Write file to response
		if err := file.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
			return
		}
	}
}
