// Package model содержит доменные сущности сервиса bizscan.
package model

import "encoding/json"

// CouponStatus содержит снимок счётчика активаций промокода.
type CouponStatus struct {
	UsesSoFar int `json:"usesSoFar"`
	Remaining int `json:"remaining"`
}

// OrderStatus описывает состояние платёжного ордера. Проверка платежа
// не ведёт собственного учёта ордеров, поэтому локальная запись существует
// только в состоянии CREATED.
type OrderStatus string

const OrderStatusCreated OrderStatus = "CREATED"

// PaymentOrder описывает ордер, созданный во внешней платёжной системе.
// Amount хранится в минорных единицах валюты.
type PaymentOrder struct {
	OrderID  string      `json:"orderId"`
	Amount   int64       `json:"amount"`
	Currency string      `json:"currency"`
	Receipt  string      `json:"receipt"`
	Status   OrderStatus `json:"-"`
}

// AnalysisRequest описывает запрос конкурентного анализа. Профили
// передаются во внешний анализатор без изменений, поэтому хранятся
// как сырой JSON.
type AnalysisRequest struct {
	Subject     json.RawMessage   `json:"subject"`
	Competitors []json.RawMessage `json:"competitors"`
	Keyword     string            `json:"keyword,omitempty"`
}
