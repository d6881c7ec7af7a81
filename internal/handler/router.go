package handler

import (
	"cantina/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(db, rdb, cfg)

	api := r.Group("/api/v1")
	{
		orders := api.Group("/orders")
		{
			orders.POST("", h.CommitOrder)
			orders.GET("", h.ListUserOrders)
			orders.GET("/:orderNo", h.GetOrder)
			orders.PATCH("/:orderNo/status", h.UpdateOrderStatus)
			orders.POST("/:orderNo/cancel", h.CancelOrder)
		}

		credit := api.Group("/credit")
		{
			credit.GET("/availability", h.CheckCreditAvailability)
			credit.POST("/payments", h.RegisterPayment)
			credit.POST("/accounts/:userID/enable", h.EnableCreditAccount)
			credit.POST("/accounts/:userID/disable", h.DisableCreditAccount)
			credit.POST("/accounts/:userID/adjust", h.AdjustDebt)
			credit.PATCH("/accounts/:userID/limit", h.UpdateCreditLimit)
			credit.PATCH("/accounts/:userID/status", h.SetAccountStatus)
			credit.GET("/accounts/:userID/statement", h.GetStatement)
			credit.GET("/accounts/:userID/payments", h.ListPayments)
			credit.GET("/accounts/:userID/ledger", h.LedgerHistory)
		}

		menus := api.Group("/menus")
		{
			menus.POST("", h.CreateMenu)
			menus.GET("", h.ListMenus)
			menus.GET("/:menuID", h.GetMenu)
			menus.DELETE("/:menuID", h.DeactivateMenu)
			menus.GET("/:menuID/availability", h.CanReserve)
			menus.POST("/:menuID/reservations", h.CreateReservation)
			menus.GET("/:menuID/reservations", h.ListMenuReservations)
			menus.PATCH("/:menuID/capacity", h.UpdateCapacity)
			menus.POST("/:menuID/waitlist", h.JoinWaitlist)
			menus.DELETE("/:menuID/waitlist", h.LeaveWaitlist)
		}

		api.GET("/reservations", h.ListUserReservations)
		api.POST("/reservations/:reservationID/confirm", h.ConfirmReservation)
		api.POST("/reservations/:reservationID/deliver", h.DeliverReservation)
		api.POST("/reservations/:reservationID/cancel", h.CancelReservation)

		stock := api.Group("/stock-items")
		{
			stock.POST("", h.CreateItem)
			stock.GET("", h.ListItems)
			stock.GET("/low", h.LowStock)
			stock.GET("/:itemID", h.GetItem)
			stock.PATCH("/:itemID", h.UpdateItem)
			stock.PATCH("/:itemID/availability", h.SetItemAvailability)
			stock.GET("/:itemID/movements", h.ListMovements)
			stock.POST("/:itemID/adjust", h.AdjustStock)
		}

		reports := api.Group("/reports")
		{
			reports.GET("/debtors", h.DebtReport)
			reports.GET("/monthly-credit", h.MonthlyCreditSummary)
			reports.GET("/orders", h.OrderStatsReport)
			reports.GET("/demand", h.MenuDemandReport)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
