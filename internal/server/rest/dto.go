package rest

import (
	"github.com/dmitrijs2005/shareplaces/internal/server/models"
)

type locationJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type placeJSON struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Address     string       `json:"address"`
	Location    locationJSON `json:"location"`
	Image       string       `json:"image"`
	Creator     string       `json:"creator"`
}

type userJSON struct {
	ID       string   `json:"id"`
	UserName string   `json:"username"`
	Email    string   `json:"email"`
	Image    string   `json:"image"`
	Places   []string `json:"places"`
}

type authJSON struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

func toPlaceJSON(p *models.Place) placeJSON {
	return placeJSON{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Address:     p.Address,
		Location:    locationJSON{Lat: p.Location.Lat, Lng: p.Location.Lng},
		Image:       p.ImageURL,
		Creator:     p.CreatorID,
	}
}

func toPlacesJSON(ps []*models.Place) []placeJSON {
	out := make([]placeJSON, len(ps))
	for i, p := range ps {
		out[i] = toPlaceJSON(p)
	}
	return out
}

func toUserJSON(u *models.User) userJSON {
	places := u.PlaceIDs
	if places == nil {
		places = []string{}
	}
	return userJSON{ID: u.ID, UserName: u.UserName, Email: u.Email, Image: u.ImageURL, Places: places}
}
