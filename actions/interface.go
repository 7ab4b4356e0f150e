package actions

import (
	"github.com/relloyd/songlake/connections"
)

type ConnectionHandler interface { // TODO: why is GetConnectionDetails() used to load connections just like interface ConnectionLoader{}?
	GetConnectionType(connectionName string) (connectionType string, err error)
	GetConnectionDetails(connectionName string) (connectionDetails *connections.ConnectionDetails, err error)
}

type ConnectionLoader interface {
	LoadConnection(connectionName string) (connections.ConnectionDetails, error)
}

type ConnectionGetterSetter interface {
	Get(key string, out interface{}) error
	Set(key string, val interface{}) error
	Delete(key string) error
}

type ConnectionValidator interface {
	Parse() error
	GetMap(m map[string]string) map[string]string
	GetScheme() (string, error)
}
