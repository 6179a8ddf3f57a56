package clients

type Repo interface {
	Upsert(client *Client) error
	Get(clientID string) (*Client, error)
	List() ([]*Client, error)
}
