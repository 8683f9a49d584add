package diagnostics

import "strconv"

// EventID is the stable numeric identifier written with every diagnostic log
// line. Downstream alerting rules match on it, so values never change.
type EventID int

const (
	EventRequestedQuery        EventID = 100
	EventQueriesFileNameNotSet EventID = 101
	EventQueriesFileNotFound   EventID = 102
	EventQueryNotFound         EventID = 103
	EventQueryFound            EventID = 104
	EventQueryNotUnique        EventID = 105
	EventCDataNotFoundForQuery EventID = 106
	EventQueriesReloaded       EventID = 107
	EventQueriesReloadFailed   EventID = 108

	EventStartingReceiver EventID = 200
	EventStartedReceiver  EventID = 201
	EventStoppedReceiver  EventID = 202

	EventHTTPEventProcessingFailed EventID = 300
	EventHTTPEventReceived         EventID = 301
	EventHTTPEventProcessed        EventID = 302

	EventErrorGettingWeatherForecast EventID = 401
	EventQueryExecuted               EventID = 402
)

var eventNames = map[EventID]string{
	EventRequestedQuery:              "RequestedQuery",
	EventQueriesFileNameNotSet:       "QueriesFileNameNotSet",
	EventQueriesFileNotFound:         "QueriesFileNotFound",
	EventQueryNotFound:               "QueryNotFound",
	EventQueryFound:                  "QueryFound",
	EventQueryNotUnique:              "QueryNotUnique",
	EventCDataNotFoundForQuery:       "CDataNotFoundForQuery",
	EventQueriesReloaded:             "QueriesReloaded",
	EventQueriesReloadFailed:         "QueriesReloadFailed",
	EventStartingReceiver:            "StartingReceiver",
	EventStartedReceiver:             "StartedReceiver",
	EventStoppedReceiver:             "StoppedReceiver",
	EventHTTPEventProcessingFailed:   "HttpEventProcessingFailed",
	EventHTTPEventReceived:           "HttpEventReceived",
	EventHTTPEventProcessed:          "HttpEventProcessed",
	EventErrorGettingWeatherForecast: "ErrorGettingWeatherForecast",
	EventQueryExecuted:               "QueryExecuted",
}

func (id EventID) String() string {
	if name, ok := eventNames[id]; ok {
		return name
	}
	return "Event" + strconv.Itoa(int(id))
}
