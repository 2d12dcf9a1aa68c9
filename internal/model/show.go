package model

import "time"

// Show is one catalog record as persisted in the shows collection.
// The catalog's numeric id doubles as the document key.
type Show struct {
	ID             int                    `bson:"_id" json:"id"`
	URL            string                 `bson:"url,omitempty" json:"url,omitempty"`
	Name           string                 `bson:"name" json:"name"`
	Type           string                 `bson:"type,omitempty" json:"type,omitempty"`
	Language       string                 `bson:"language,omitempty" json:"language,omitempty"`
	Genres         []string               `bson:"genres,omitempty" json:"genres,omitempty"`
	Status         string                 `bson:"status,omitempty" json:"status,omitempty"`
	Runtime        *int                   `bson:"runtime,omitempty" json:"runtime,omitempty"`
	AverageRuntime *int                   `bson:"average_runtime,omitempty" json:"averageRuntime,omitempty"`
	Premiered      string                 `bson:"premiered,omitempty" json:"premiered,omitempty"`
	Ended          string                 `bson:"ended,omitempty" json:"ended,omitempty"`
	OfficialSite   string                 `bson:"official_site,omitempty" json:"officialSite,omitempty"`
	Schedule       map[string]interface{} `bson:"schedule,omitempty" json:"schedule,omitempty"`
	Rating         map[string]interface{} `bson:"rating,omitempty" json:"rating,omitempty"`
	Weight         *int                   `bson:"weight,omitempty" json:"weight,omitempty"`
	Network        map[string]interface{} `bson:"network,omitempty" json:"network,omitempty"`
	WebChannel     map[string]interface{} `bson:"web_channel,omitempty" json:"webChannel,omitempty"`
	DVDCountry     map[string]interface{} `bson:"dvd_country,omitempty" json:"dvdCountry,omitempty"`
	Externals      map[string]interface{} `bson:"externals,omitempty" json:"externals,omitempty"`
	Image          map[string]interface{} `bson:"image,omitempty" json:"image,omitempty"`
	Summary        string                 `bson:"summary,omitempty" json:"summary,omitempty"`
	Updated        int64                  `bson:"updated,omitempty" json:"updated,omitempty"`
	Links          map[string]interface{} `bson:"links,omitempty" json:"_links,omitempty"`

	// Processing metadata
	ImportedAt time.Time `bson:"imported_at" json:"importedAt"`
}

// ShowSummary is the projection served by the summaries endpoint
type ShowSummary struct {
	ID        int                    `bson:"_id" json:"id"`
	Name      string                 `bson:"name" json:"name"`
	Genres    []string               `bson:"genres,omitempty" json:"genres,omitempty"`
	Status    string                 `bson:"status,omitempty" json:"status,omitempty"`
	Premiered string                 `bson:"premiered,omitempty" json:"premiered,omitempty"`
	Rating    map[string]interface{} `bson:"rating,omitempty" json:"rating,omitempty"`
	Image     map[string]interface{} `bson:"image,omitempty" json:"image,omitempty"`
	Network   map[string]interface{} `bson:"network,omitempty" json:"network,omitempty"`
}

// ShowID is one row of the id-tracking collection used by later season/episode syncs
type ShowID struct {
	ID          int       `bson:"_id" json:"id"`
	LastUpdated int64     `bson:"last_updated" json:"lastUpdated"`
	TrackedAt   time.Time `bson:"tracked_at" json:"trackedAt"`
}
