package models

import "time"

// Customer is a CRM contact returned by the customer lookup.
type Customer struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Email     string    `json:"email,omitempty" db:"email"`
	City      string    `json:"city,omitempty" db:"city"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Request is a property request registered by a customer.
type Request struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	CustomerName string    `json:"customerName" db:"customer_name"`
	PropertyType string    `json:"propertyType,omitempty" db:"property_type"`
	City         string    `json:"city,omitempty" db:"city"`
	Budget       float64   `json:"budget,omitempty" db:"budget"`
	Status       string    `json:"status" db:"status"`
	Urgent       bool      `json:"urgent" db:"urgent"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Offer is a listed property offer.
type Offer struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	PropertyType string  `json:"propertyType,omitempty"`
	Location     string  `json:"location"`
	Price        float64 `json:"price"`
	Area         float64 `json:"area,omitempty"`
	Status       string  `json:"status,omitempty"`
}

// BusinessCard is a shareable agent card.
type BusinessCard struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"userId" db:"user_id"`
	DisplayName string    `json:"displayName" db:"display_name"`
	ShareURL    string    `json:"shareUrl" db:"share_url"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Appointment is the record produced when the appointment flow completes.
type Appointment struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId,omitempty" db:"user_id"`
	Type      string    `json:"type" db:"type"`
	Date      string    `json:"date" db:"date"`
	Time      string    `json:"time" db:"time"`
	Purpose   string    `json:"purpose" db:"purpose"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
