package model

// Car is one vehicle listing served by the inventory endpoint.
type Car struct {
	ID           string   `json:"id"`
	Make         string   `json:"make"`
	Model        string   `json:"model"`
	Year         int      `json:"year"`
	Price        int      `json:"price"`
	Mileage      int      `json:"mileage"`
	FuelType     string   `json:"fuelType"`
	Transmission string   `json:"transmission"`
	BodyStyle    string   `json:"bodyStyle"`
	Color        string   `json:"color"`
	Features     []string `json:"features,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
}
