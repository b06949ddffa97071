package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE node_settings (
				node_id VARCHAR(128) PRIMARY KEY,
				script TEXT NOT NULL DEFAULT '',
				executable_selection VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
	}
}
